package rules

import (
	"regexp"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

var serverNamePattern = regexp.MustCompile(`^(~.+|[\w.\-*]+)$`)

func proxyRules() []Rule {
	b := binder{artifact: artifact.NginxConf, kind: artifact.KindProxyConfig, prefix: "proxy"}

	return []Rule{
		b.rule("not-empty", "nginx.conf is not empty", NotEmpty()),
		b.rule("events-block", "an events block, when declared, is top-level", TopLevelBlock("events")),
		b.rule("http-block", "an http block, when declared, is top-level", TopLevelBlock("http")),
		b.rule("server-block", "defines at least one server block", BlockCount("server", 1)),
		b.rule("upstream-block", "defines an upstream backend", BlockCount("upstream", 1)),
		b.rule("ssl-certificate", "configures ssl_certificate", Presence(Regex(`\bssl_certificate\s`))),
		b.rule("ssl-certificate-key", "configures ssl_certificate_key", Presence(Regex(`\bssl_certificate_key\s`))),
		b.rule("proxy-pass", "a server proxies to the backend",
			ScopedPresence(Block("server"), Regex(`\bproxy_pass\s`))),
		b.rule("http-redirect", "plain HTTP is redirected with return 301",
			ScopedPresence(Block("server"), Regex(`\breturn\s+301\b`))),
		b.rule("websocket-upgrade", "forwards the WebSocket Upgrade header", Presence(Literal("Upgrade"))),
		b.rule("docs-location", "serves documentation under /docs/", LocationBlock("/docs/")),
		b.rule("acme-challenge-location", "serves the ACME challenge location",
			LocationBlock("/.well-known/acme-challenge/")),
		b.rule("worker-connections", "sets worker_connections", Presence(Regex(`\bworker_connections\s+\d+`))),
		b.rule("braces-balanced", "opening and closing braces are balanced", Predicate(func(v *extract.ProxyView) Verdict {
			if !v.Balanced() {
				return Fail("unbalanced braces: %d open, %d close", v.OpenBraces, v.CloseBraces)
			}
			return Pass()
		})),
		b.rule("server-name-syntax", "server_name directives name valid hosts", Predicate(checkServerNames)),
		b.rule("listen-http", "a server listens on port 80",
			ScopedPresence(Block("server"), Regex(`\blisten\s+(\S*:)?80\b`))),
		b.rule("listen-https", "a server listens on port 443 with ssl",
			ScopedPresence(Block("server"), Regex(`\blisten\s+(\S*:)?443\s+ssl\b`))),
	}
}

func checkServerNames(v *extract.ProxyView) Verdict {
	for _, d := range v.Lookup("server_name") {
		if len(d.Args) == 0 {
			return Fail("server_name on line %d has no value", lineOf(v.Artifact().Text(), d.Offset))
		}
		for _, name := range d.Args {
			if name != "" && !serverNamePattern.MatchString(name) {
				return Fail("server_name %q on line %d is not a valid host", name, lineOf(v.Artifact().Text(), d.Offset))
			}
		}
	}
	return Pass()
}
