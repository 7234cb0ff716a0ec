// Package rules holds the conformance rule catalog and the generic rule
// shapes it is built from.
//
// A Rule is bound to one logical artifact and evaluates to a Verdict over
// that artifact's structural view:
//
//	Pass               the artifact satisfies the rule
//	Fail(reason)       the artifact was inspected and violates the rule
//	Error(cause)       the rule could not be evaluated
//
// Shapes cover the common forms: Presence and Absence over raw text, Count
// over a typed view, ScopedPresence within a section or block, Key lookups
// over decoded manifests, Invocation and Assignment over scripts, Rego deny
// policies and CUE schema unification. Predicate adapts any typed function.
//
// Scoped rules over sections consult the first occurrence only. A scoped rule
// whose scope is missing fails unless declared with SkipIfAbsent, in which
// case the rule asserting the scope's existence reports the absence alone.
//
// Builtin returns the fixed catalog:
//
//	catalog, err := rules.Builtin()
//	if err != nil {
//		return err
//	}
//	for _, r := range catalog.Rules() {
//		fmt.Println(r.ID, r.Description)
//	}
package rules
