package traces

import "regexp"

type pattern struct {
	re  *regexp.Regexp
	typ string
}

// formalPatterns are matched in order against every line.
var formalPatterns = []pattern{
	{regexp.MustCompile(`因此[，,]`), TypeFormalConnector},
	{regexp.MustCompile(`此外[，,]`), TypeFormalConnector},
	{regexp.MustCompile(`综上所述[，,]`), TypeFormalConclusion},
	{regexp.MustCompile(`总而言之[，,]`), TypeFormalConclusion},
	{regexp.MustCompile(`值得注意的是[，,]`), TypeFormalAttention},
	{regexp.MustCompile(`需要强调的是[，,]`), TypeFormalEmphasis},
	{regexp.MustCompile(`根据以上[，,]`), TypeFormalReference},

	{regexp.MustCompile(`(?i)\btherefore,`), TypeFormalConnector},
	{regexp.MustCompile(`(?i)\bfurthermore,`), TypeFormalConnector},
	{regexp.MustCompile(`(?i)\bmoreover,`), TypeFormalConnector},
	{regexp.MustCompile(`(?i)\bin summary,`), TypeFormalConclusion},
	{regexp.MustCompile(`(?i)\bin conclusion,`), TypeFormalConclusion},
	{regexp.MustCompile(`(?i)\bit is worth noting that\b`), TypeFormalAttention},
	{regexp.MustCompile(`(?i)\bit should be emphasized that\b`), TypeFormalEmphasis},
	{regexp.MustCompile(`(?i)\bbased on the above,`), TypeFormalReference},
}

// complexPatterns flag structural habits. Matches stop at clause punctuation.
var complexPatterns = []pattern{
	{regexp.MustCompile(`的[^，,。！？]*的[^，,。！？]*的`), TypeComplexModifiers},
	{regexp.MustCompile(`以及[^，,。！？]*以及`), TypeParallelStructure},
	{regexp.MustCompile(`通过[^，,。！？]*从而`), TypeCausalChain},
}
