package critic

import "fmt"

const retrievePromptTemplate = `
You are a strict gatekeeper for a financial compliance RAG system. Your sole purpose is to decide if a query is about the topics in our knowledge base.

DOMAIN OF KNOWLEDGE:
- Banking regulations (e.g., CBN, CBK, FATF, Basel rules)
- Credit, loans, and lending policies
- KYC (Know Your Customer) and AML (Anti-Money Laundering) procedures
- Consumer protection regulations for financial products
- Internal bank policies and model cards
- Financial risk management and capital requirements

DECISION RULES:
- **RETRIEVE (set true) ONLY if:** The query is DIRECTLY about one of the topics in the DOMAIN OF KNOWLEDGE above and requires factual information from documents.
- **DO NOT RETRIEVE (set false) if:** The query is about any other topic (sports, movies, history, science, coding, etc.), is a greeting, small talk, or is too vague.

QUERY: %s

Analyze the query strictly against the DOMAIN OF KNOWLEDGE. Return ONLY a JSON object with your decision and reason.

Example Output for a sports query: {"retrieve": false, "notes": "Query is about sports, which is outside the financial compliance domain of this system."}
Example Output for a finance query: {"retrieve": true, "notes": "Query is about specific capital requirements, which is within the financial compliance domain."}
`

const scorePromptTemplate = `
You are a critic evaluating an AI's answer against a source passage. Score the answer on three criteria:

QUERY: %s
GENERATED ANSWER: %s
SOURCE PASSAGE: %s

CRITERIA:
1.  isrel (Relevance): Score 0.0-1.0. How relevant is the source passage to the original query? Ignore the answer. Is the passage about the query topic?
2.  issup (Support): Score 0.0-1.0. How well does the source passage support the specific claims in the generated answer? Does the passage contain the evidence for the answer's facts? (1.0 = perfect support, 0.0 = contradiction or no support).
3.  isuse (Utility): Score 0.0-1.0. How useful is this passage for forming a comprehensive and helpful answer to the query? A highly relevant but very short passage might score lower.

Provide only a JSON object with your scores and optional brief notes. Example:
{
  "isrel": 0.9,
  "issup": 0.8,
  "isuse": 0.7,
  "notes": "Passage is highly relevant and supports the main claim, but is missing some details."
}
`

func retrievePrompt(query string) string {
	return fmt.Sprintf(retrievePromptTemplate, query)
}

func scorePrompt(query, answer, passage string) string {
	return fmt.Sprintf(scorePromptTemplate, query, answer, passage)
}
