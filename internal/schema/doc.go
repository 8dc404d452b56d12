// Package schema resolves node types to their parameter contracts.
//
// Resolution order for one validation session:
//  1. the live Registry, if configured
//  2. the static fallback Catalog (a plain map lookup)
//  3. absent: callers skip required-parameter checks for the type
//
// A Session memoizes every outcome, including absences, so each distinct
// node type costs at most one registry call per session no matter how many
// add_node calls reference it. Sessions are per call and not shared.
//
// Catalogs are written in CUE:
//
//	node: LLMAgentNode: {
//		description: "Calls a language model"
//		params: {
//			model: {type: "str", required: true}
//			temperature: {type: "float", required: false, default: 0.7}
//		}
//	}
package schema
