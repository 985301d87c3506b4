package knowledge

// Specialization names an agent's area of focus and the categories it draws topic terms from.
type Specialization struct {
	Name       string
	Categories []string
}

// DefaultSpecializations is assigned round-robin to agents when a run does not provide its own.
var DefaultSpecializations = []Specialization{
	{Name: "Crop Science & Plant Breeding", Categories: []string{"crop", "plant"}},
	{Name: "Soil Science & Fertility Management", Categories: []string{"soil"}},
	{Name: "Water Resources & Irrigation", Categories: []string{"water"}},
	{Name: "Plant Protection & Pest Management", Categories: []string{"pest"}},
	{Name: "Agricultural Technology & Precision Farming", Categories: []string{"technology"}},
	{Name: "Sustainable & Organic Farming", Categories: []string{"sustainable"}},
	{Name: "Agricultural Economics & Policy", Categories: []string{"economics", "scheme"}},
	{Name: "Climate Change & Adaptation", Categories: []string{"climate"}},
	{Name: "Livestock & Animal Husbandry", Categories: []string{"livestock"}},
	{Name: "Agricultural Research & Innovation", Categories: []string{"institution", "plant"}},
}

// Resolve drops categories the knowledge base does not define. When nothing
// remains the topic categories of kb are returned.
func (s Specialization) Resolve(kb *KnowledgeBase) []string {
	out := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		if kb.Has(c) && !IsReserved(c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return kb.Topics()
	}
	return out
}
