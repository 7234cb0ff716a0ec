// Package engine evaluates rules against artifact snapshots.
//
// An Engine extracts each artifact once into its structural view and then
// evaluates every rule bound to it, in catalog order. Rules are independent:
// a Fail or Error never prevents the rules after it from running, and a rule
// that panics yields an Error verdict instead of terminating the run.
//
//	ext := extract.New(extract.NewBashChecker("bash"), logger)
//	eng := engine.New(ext, logger)
//	results := eng.Evaluate(ctx, snapshot, catalogRules)
//
// When an artifact cannot be read at all, Errored gives every bound rule
// an Error verdict carrying the classified cause.
package engine
