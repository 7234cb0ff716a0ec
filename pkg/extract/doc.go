// Package extract turns raw artifact text into structural views that rules
// can address: brace-delimited blocks for the reverse-proxy config, named
// sections for the supervisor config, a decoded tree for orchestration
// manifests, an instruction list for the build recipe, and a parsed command
// stream plus an external syntax-check result for shell scripts.
//
// Extraction is total. Proxy, section and recipe extraction always produce a
// best-effort view, even for unbalanced or partially malformed input.
// Manifest decoding either yields the full tree or a classified malformed
// error; it never yields a partial tree. Script syntax-check failures that
// prevent the checker from running are carried on the view so that only the
// syntax rule is affected.
//
// Example:
//
//	ex := extract.New(extract.NewBashChecker("bash"), logger)
//	view, err := ex.Extract(ctx, a)
//	if err != nil {
//		// every rule bound to a becomes an Error verdict
//	}
//	proxy := view.(*extract.ProxyView)
//	for _, b := range proxy.Find("server") {
//		fmt.Println(b.Start, b.End, b.Closed)
//	}
package extract
