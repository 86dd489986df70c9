// Package cost prices token usage. A [Table] maps model names to per-million
// token rates and is loaded from the pricing section of the configuration;
// [ModelCost.Summarize] turns an [ai.Usage] into a [Summary] in USD.
package cost
