package llm

const extractionPrompt = `You are a knowledge extraction system for a personal knowledge base. Analyze the following utterance and break it into atomic propositions with stances, plus any entity mentions.

For each proposition, determine:
- content: one atomic statement, rephrased minimally
- type: one of "fact", "preference", "intention", "question", "observation"
- subject: a short lowercase topic phrase (1-3 words) the statement is about
- confidence: 0.0-1.0, how confident the extraction is
- stance:
  - epistemic: {"certainty": 0.0-1.0, "evidence": "stated|inferred|hearsay"}
  - volitional: {"type": "desire|aversion|goal|none", "strength": 0.0-1.0, "valence": -1.0..1.0}
  - deontic: {"type": "obligation|permission|", "strength": 0.0-1.0}
  - affective: {"valence": -1.0..1.0, "arousal": 0.0-1.0, "emotions": ["..."]}

For each entity mention, determine:
- text: the span as written
- mention_type: "named", "pronominal", or "nominal"
- suggested_type: "person", "place", "organization", "thing", or "concept"

Respond ONLY with JSON, no markdown:
{"propositions":[{"content":"...","type":"...","subject":"...","confidence":0.9,"stance":{...}}],"mentions":[{"text":"...","mention_type":"named","suggested_type":"person"}]}

If nothing can be extracted, respond {"propositions":[],"mentions":[]}.

Utterance:
%s`

const contradictionPrompt = `Do these two statements contradict each other?
Statement A: %s
Statement B: %s

Answer only "true" or "false". No explanation.`
