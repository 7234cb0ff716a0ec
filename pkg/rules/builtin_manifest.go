package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

func devComposeRules(schema *SchemaValidator) []Rule {
	b := binder{artifact: artifact.ComposeDev, kind: artifact.KindManifest, prefix: "compose"}

	return []Rule{
		b.rule("version", "declares a non-empty version", Key("version", NotNull())),
		b.rule("services", "defines at least one service", NonEmptyMapping("services")),
		b.rule("service-images", "every service has an image or a build", Predicate(checkServiceImages)),
		b.rule("tikzit-service", "defines the tikzit service", Key("services.tikzit")),
		b.rule("tikzit-ports", "tikzit service publishes ports", Key("services.tikzit.ports", SkipIfAbsent())),
		b.rule("tikzit-port-8080", "tikzit service exposes port 8080 for noVNC",
			sequenceMentions("services.tikzit", "ports", "8080")),
		b.rule("schema", "manifest matches the compose schema", schema.Check()),
	}
}

func prodComposeRules(schema *SchemaValidator) []Rule {
	b := binder{artifact: artifact.ComposeProd, kind: artifact.KindManifest, prefix: "compose-prod"}

	return []Rule{
		b.rule("version", "declares a non-empty version", Key("version", NotNull())),
		b.rule("services", "defines at least one service", NonEmptyMapping("services")),
		b.rule("tikzit-default-service", "defines the tikzit_default service", Key("services.tikzit_default")),
		b.rule("nginx-service", "defines the nginx service", Key("services.nginx")),
		b.rule("certbot-volumes", "certbot service mounts volumes for certificates", Key("services.certbot.volumes")),
		b.rule("tikzit-network", "defines the tikzit_net network", Key("networks.tikzit_net")),
		b.rule("volumes", "declares top-level volumes", Key("volumes")),
		b.rule("services-on-network", "tikzit_default and nginx join a network",
			servicesOnNetwork("tikzit_default", "nginx")),
		b.rule("nginx-volumes", "nginx service mounts volumes", Key("services.nginx.volumes", SkipIfAbsent())),
		b.rule("nginx-conf-mount", "nginx service mounts nginx.conf",
			sequenceMentions("services.nginx", "volumes", "nginx.conf")),
		b.rule("vnc-password-env", "VNC password comes from ${VNC_PASSWORD}", Presence(Literal("${VNC_PASSWORD}"))),
		b.rule("no-privileged", "no service runs privileged", MustRego("no-privileged.rego", noPrivilegedPolicy)),
		b.rule("no-host-network", "no service uses host networking", MustRego("no-host-network.rego", noHostNetworkPolicy)),
		b.rule("schema", "manifest matches the compose schema", schema.Check()),
	}
}

func checkServiceImages(v *extract.ManifestView) Verdict {
	services, ok := v.Mapping("services")
	if !ok {
		return Pass()
	}

	var missing []string
	for _, name := range sortedKeys(services) {
		svc, ok := services[name].(map[string]any)
		if !ok {
			missing = append(missing, name)
			continue
		}
		_, hasImage := svc["image"]
		_, hasBuild := svc["build"]
		if !hasImage && !hasBuild {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Fail("services without image or build: %s", strings.Join(missing, ", "))
	}
	return Pass()
}

// sequenceMentions requires the sequence at service.field to contain an
// entry mentioning want. The rule passes when the service itself is absent.
func sequenceMentions(service, field, want string) CheckFunc {
	return Predicate(func(v *extract.ManifestView) Verdict {
		if _, ok := v.Lookup(service); !ok {
			return Pass()
		}
		items, _ := v.Sequence(service + "." + field)
		for _, item := range items {
			if strings.Contains(fmt.Sprint(item), want) {
				return Pass()
			}
		}
		return Fail("%s.%s does not mention %s", service, field, want)
	})
}

// servicesOnNetwork requires each named service that exists to declare
// networks.
func servicesOnNetwork(names ...string) CheckFunc {
	return Predicate(func(v *extract.ManifestView) Verdict {
		var off []string
		for _, name := range names {
			svc, ok := v.Mapping("services." + name)
			if !ok {
				continue
			}
			if _, ok := svc["networks"]; !ok {
				off = append(off, name)
			}
		}
		if len(off) > 0 {
			return Fail("services not on a network: %s", strings.Join(off, ", "))
		}
		return Pass()
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
