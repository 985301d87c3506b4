// Package query generates the search queries of an agent.
//
// Three strategies are provided. Static enumerates topic term × region ×
// modifier combinations in a fixed order and stops when they run out.
// Adaptive fills pattern templates with knowledge base samples and picks the
// pattern through learning.ComputeWeights and learning.Select, so productive
// patterns are favored while every live pattern keeps some probability.
// LLM asks an ai.QueryWriter for batches of queries about the agent's
// specialization and falls back to Adaptive while the model is failing.
//
// All strategies stop at the agent's search budget and never repeat a query.
package query
