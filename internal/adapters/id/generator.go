package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) RunID() string {
	return g.generate("run")
}

func (g *Generator) DocumentID() string {
	return g.generate("doc")
}

func (g *Generator) ChunkID() string {
	return g.generate("chunk")
}
