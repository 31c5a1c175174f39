// Package rule implements the span-pattern matcher.
//
// A Rule is a root Composed element whose children are TypeElements (match
// one span of a type) and nested Composed elements (match a group as a
// sequence). Every element carries a Quantifier, Conditions evaluated
// against candidate spans, and Actions run once a rule match is confirmed.
//
// MATCHING MODEL:
//
// Matching starts at the anchoring element, which tries every candidate span
// of its type in document order, each on its own RuleMatch. From there,
// elements hand control to each other through explicit continuations:
//
//   - continueMatch: step to the adjacent unit in a direction and extend
//     the match (another repetition, or the next sibling)
//   - fallbackContinue: a child finished (or failed); the container
//     re-evaluates its own quantifier and decides what comes next
//   - fallback: propagate to the enclosing container, resume the side-step
//     origin, or finish the RuleMatch
//   - continueSideStep: after the forward pass, match the elements before
//     the anchor backward from the anchor's first span
//
// Continuations never call each other directly. Each one pushes the next
// step onto a LIFO work stack drained by a single loop, so native call
// depth stays bounded no matter how long the rule or how many
// repetitions it takes.
//
// When several candidates are adjacent, each is an alternative: the first
// continues on the current RuleMatch, the others on snapshots taken before
// the first ran. Alternatives run depth-first in document order.
//
// MATCH TREE:
//
// A RuleMatch owns an arena of nodes addressed by index. A node is one
// repetition of one element. Composed repetitions own their children;
// parent lookups go through the node's parent index. The matched flag of a
// RuleMatch only ever narrows from true to false.
//
// Backtracking is single-level: when a repetition of a composed element
// fails, the next sibling retries from the last span of the last accepted
// repetition, never further back.
//
// Matching is single-threaded and deterministic. The same rule over the
// same stream always yields the same match trees.
package rule
