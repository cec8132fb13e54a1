// Package traces locates heuristic "AI trace" patterns in text and renders
// them as inline markup without disturbing the underlying character offsets.
package traces

// Trace types emitted by the annotator.
const (
	TypeWordRepetition    = "word_repetition"
	TypeLongLine          = "long_line"
	TypeFormalConnector   = "formal_connector"
	TypeFormalConclusion  = "formal_conclusion"
	TypeFormalAttention   = "formal_attention"
	TypeFormalEmphasis    = "formal_emphasis"
	TypeFormalReference   = "formal_reference"
	TypeComplexModifiers  = "complex_modifiers"
	TypeParallelStructure = "parallel_structure"
	TypeCausalChain       = "causal_chain"
)

// Mark is a single detected trace.
// Start and End are rune offsets into Result.OriginalText, end exclusive.
type Mark struct {
	ID     string `json:"id"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Result is the outcome of one annotation pass.
type Result struct {
	OriginalText string `json:"original_text"`
	MarkedText   string `json:"marked_text"`
	Traces       []Mark `json:"traces"`
	Explanation  string `json:"explanation"`
}

// TypeInfo describes a trace type for display.
type TypeInfo struct {
	Type        string `json:"type"`
	Family      string `json:"family"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var typeCatalog = []TypeInfo{
	{
		Type:        TypeWordRepetition,
		Family:      "repetition",
		Name:        "Word repetition",
		Description: "Human writers tend to vary their vocabulary. Models often reuse the same word because it is the most common expression in their training data.",
	},
	{
		Type:        TypeLongLine,
		Family:      "length",
		Name:        "Overlong line",
		Description: "People break text into paragraphs and lines naturally. Very long unbroken lines suggest a large block generated in one pass.",
	},
	{
		Type:        TypeFormalConnector,
		Family:      "formal",
		Name:        "Formal connector",
		Description: "Connectors such as \"therefore\" or \"furthermore\" belong to formal and academic writing. Models use them heavily to build logical transitions.",
	},
	{
		Type:        TypeFormalConclusion,
		Family:      "formal",
		Name:        "Formal conclusion",
		Description: "Phrases such as \"in summary\" or \"in conclusion\" are typical of formal writing and are a common way for models to close a paragraph.",
	},
	{
		Type:        TypeFormalAttention,
		Family:      "formal",
		Name:        "Attention phrase",
		Description: "Expressions such as \"it is worth noting that\" draw attention in a formal register that models overuse.",
	},
	{
		Type:        TypeFormalEmphasis,
		Family:      "formal",
		Name:        "Emphasis phrase",
		Description: "Emphatic expressions are common in formal settings. Models may overuse them to sound persuasive.",
	},
	{
		Type:        TypeFormalReference,
		Family:      "formal",
		Name:        "Reference phrase",
		Description: "Back-references such as \"based on the above\" signal step-by-step argumentation typical of generated text.",
	},
	{
		Type:        TypeComplexModifiers,
		Family:      "complex",
		Name:        "Stacked modifiers",
		Description: "Chains of attributive modifiers (repeated 的 structures) are a hallmark of formal Chinese prose and of model output.",
	},
	{
		Type:        TypeParallelStructure,
		Family:      "complex",
		Name:        "Parallel structure",
		Description: "Repeating a connective such as 以及 produces symmetrical sentences that models favour for balance.",
	},
	{
		Type:        TypeCausalChain,
		Family:      "complex",
		Name:        "Causal chain",
		Description: "通过...从而 (by means of ... thereby) structures spell out cause and effect in the explicit way models prefer.",
	},
}

// Types returns the catalog of trace types in a stable order.
func Types() []TypeInfo {
	out := make([]TypeInfo, len(typeCatalog))
	copy(out, typeCatalog)
	return out
}
