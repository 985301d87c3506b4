// Package knowledge holds the term taxonomy queries are generated from.
//
// A KnowledgeBase maps categories to subcategories to ordered terms. Two
// category names are reserved: "region" and "modifier" are enumeration axes
// combined with topic terms by the static query strategy, and fill the
// {region} and {modifier} placeholders of adaptive templates.
//
// The package embeds a default agricultural taxonomy focused on India and a
// table of agent specializations mapping to focus categories.
package knowledge
