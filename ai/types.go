package ai

// Assessment is a model's structured judgement of one entry.
type Assessment struct {
	// Domain is the area of agriculture the content covers
	// (crops, soil, water, technology, policy, ...).
	Domain string `json:"domain"`

	// RelevanceScore rates relevance to Indian agriculture in [0,1].
	RelevanceScore float64 `json:"relevance_score"`

	// Regions lists Indian states, regions or crops the content mentions.
	Regions []string `json:"geographic_relevance"`
}

// Domains are the agricultural areas a model may assign to an Assessment.
var Domains = []string{
	"crops",
	"soil",
	"water",
	"climate",
	"pest",
	"technology",
	"policy",
	"economics",
	"livestock",
	"sustainability",
	"general",
}
