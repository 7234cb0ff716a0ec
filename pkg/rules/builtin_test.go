package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

var cmpSorted = cmpopts.SortSlices(func(a, b string) bool { return a < b })

func TestBuiltinCatalog(t *testing.T) {
	catalog, err := Builtin()
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	layout := artifact.DefaultLayout()
	for _, r := range catalog.Rules() {
		d, ok := layout.Lookup(r.Artifact)
		if !ok {
			t.Errorf("rule %s is bound to unknown artifact %q", r.ID, r.Artifact)
			continue
		}
		if d.Kind != r.Kind {
			t.Errorf("rule %s declares kind %s, artifact %s is %s", r.ID, r.Kind, r.Artifact, d.Kind)
		}
		if r.Description == "" {
			t.Errorf("rule %s has no description", r.ID)
		}
	}

	for _, d := range layout.Descriptors() {
		if len(catalog.Positions(d.Name)) == 0 {
			t.Errorf("no rules bound to %s", d.Name)
		}
	}
}

func TestBuiltinConformantProject(t *testing.T) {
	root := filepath.Join("..", "..", "testdata", "conformant")

	for _, d := range artifact.DefaultLayout().Descriptors() {
		t.Run(d.Name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(root, d.Path))
			if err != nil {
				t.Fatalf("Failed to read fixture: %v", err)
			}

			got := failing(evaluate(t, d.Name, viewOf(t, d.Name, string(data))))
			if diff := cmp.Diff(map[string]Verdict{}, got); diff != "" {
				t.Errorf("unexpected non-passing verdicts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProxyScenarioAllPass(t *testing.T) {
	tests := []struct {
		name string
		conf string
	}{
		{
			name: "events and http blocks",
			conf: `events {
    worker_connections 1024;
}
http {
    upstream backend {
        server app:8080;
    }
    server {
        listen 80;
        location /.well-known/acme-challenge/ { root /var/www/certbot; }
        return 301 https://$host$request_uri;
    }
    server {
        listen 443 ssl;
        ssl_certificate /certs/fullchain.pem;
        ssl_certificate_key /certs/privkey.pem;
        location / {
            proxy_pass http://backend;
            proxy_set_header Upgrade $http_upgrade;
        }
        location /docs/ { alias /srv/docs/; }
    }
}
`,
		},
		{
			name: "bare server and upstream",
			conf: `worker_connections 1024;
upstream backend {
    server app:8080;
}
server {
    listen 80;
    listen 443 ssl;
    ssl_certificate /certs/fullchain.pem;
    ssl_certificate_key /certs/privkey.pem;
    location /.well-known/acme-challenge/ { root /var/www/certbot; }
    location /docs/ { alias /srv/docs/; }
    location / {
        proxy_pass http://backend;
        proxy_set_header Upgrade $http_upgrade;
    }
    return 301 https://${host}$request_uri;
}
`,
		},
		{
			name: "certificates inherited from http",
			conf: `events {
    worker_connections 512;
}
http {
    ssl_certificate /certs/fullchain.pem;
    ssl_certificate_key /certs/privkey.pem;
    upstream backend { server app:8080; }
    server {
        listen 80;
        location /.well-known/acme-challenge/ { root /var/www/certbot; }
        return 301 https://$host$request_uri;
    }
    server {
        listen 443 ssl;
        location /docs/ { alias /srv/docs/; }
        location / {
            proxy_pass http://backend;
            proxy_set_header Upgrade $http_upgrade;
        }
    }
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := failing(evaluate(t, artifact.NginxConf, viewOf(t, artifact.NginxConf, tt.conf)))
			if diff := cmp.Diff(map[string]Verdict{}, got); diff != "" {
				t.Errorf("unexpected non-passing verdicts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProxyNestedEventsBlock(t *testing.T) {
	conf := `http {
    events {
        worker_connections 1024;
    }
}
`

	got := evaluate(t, artifact.NginxConf, viewOf(t, artifact.NginxConf, conf))
	want := Fail("events block on line 2 is nested at depth 1")
	if diff := cmp.Diff(want, got["proxy.events-block"]); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
	if !got["proxy.http-block"].IsPass() {
		t.Errorf("proxy.http-block = %s, want PASS", got["proxy.http-block"])
	}
}

func TestSupervisorMissingNovncProgram(t *testing.T) {
	conf := `[supervisord]
nodaemon=true
logfile=/dev/stdout
logfile_maxbytes=0

[program:vncserver]
command=/usr/bin/Xvnc :1 -geometry 1280x800
user=tikzit
autorestart=true
environment=HOME="/home/tikzit"
`
	got := failing(evaluate(t, artifact.SupervisordConf, viewOf(t, artifact.SupervisordConf, conf)))
	want := map[string]Verdict{
		"supervisor.novnc-program": Fail("section [program:novnc] not found"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("verdicts mismatch (-want +got):\n%s", diff)
	}
}

func TestRecipeSingleStage(t *testing.T) {
	recipe := "FROM ubuntu:22.04\nRUN apt-get update\n"

	got := evaluate(t, artifact.Dockerfile, viewOf(t, artifact.Dockerfile, recipe))
	want := Fail("expected at least 2 FROM instructions, found 1")
	if diff := cmp.Diff(want, got["recipe.multi-stage"]); diff != "" {
		t.Errorf("multi-stage verdict mismatch (-want +got):\n%s", diff)
	}
	if !got["recipe.from"].IsPass() {
		t.Errorf("recipe.from = %s, want PASS", got["recipe.from"])
	}
}

func TestScopedVersusGlobalPresence(t *testing.T) {
	// autorestart is set for novnc only; the vncserver section lacks it.
	conf := `[supervisord]
nodaemon=true

[program:vncserver]
command=/usr/bin/Xvnc :1 -geometry 1280x800
user=tikzit

[program:novnc]
command=/usr/bin/novnc_proxy
autorestart=true
`
	view := viewOf(t, artifact.SupervisordConf, conf)
	got := evaluate(t, artifact.SupervisordConf, view)

	if got["supervisor.vncserver-autorestart"].Status != StatusFail {
		t.Errorf("supervisor.vncserver-autorestart = %s, want FAIL", got["supervisor.vncserver-autorestart"])
	}
	if !strings.Contains(got["supervisor.vncserver-autorestart"].Reason, "section [program:vncserver]") {
		t.Errorf("expected reason to name the section, got %q", got["supervisor.vncserver-autorestart"].Reason)
	}
	if v := Presence(Regex(`(?m)^\s*autorestart\s*=`))(context.Background(), view); !v.IsPass() {
		t.Errorf("global presence = %s, want PASS", v)
	}
}

func TestProxyBraceBalance(t *testing.T) {
	conf := "events {\n    worker_connections 512;\n}\nhttp {\n    server {\n        listen 80;\n    }\n"

	got := evaluate(t, artifact.NginxConf, viewOf(t, artifact.NginxConf, conf))
	want := Fail("unbalanced braces: 3 open, 2 close")
	if diff := cmp.Diff(want, got["proxy.braces-balanced"]); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
}

func TestProxyServerNameSyntax(t *testing.T) {
	tests := []struct {
		name string
		conf string
		want Status
	}{
		{name: "no server_name", conf: "server { listen 80; }", want: StatusPass},
		{name: "host names", conf: "server { server_name example.com www.example.com; }", want: StatusPass},
		{name: "wildcard", conf: "server { server_name *.example.com; }", want: StatusPass},
		{name: "regex", conf: `server { server_name "~^(?<user>.+)\.example\.net$"; }`, want: StatusPass},
		{name: "missing value", conf: "server { server_name; }", want: StatusFail},
		{name: "invalid host", conf: "server { server_name exa/mple; }", want: StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluate(t, artifact.NginxConf, viewOf(t, artifact.NginxConf, tt.conf))
			if v := got["proxy.server-name-syntax"]; v.Status != tt.want {
				t.Errorf("proxy.server-name-syntax = %s, want %s", v, tt.want)
			}
		})
	}
}

func TestSupervisorStructuralRules(t *testing.T) {
	conf := `[supervisord]
nodaemon=true
logfile=/dev/stdout
logfile_maxbytes=0

[program:vncserver]
command=/usr/bin/Xvnc -geometry 1280x800
user=tikzit
autorestart=true
environment=HOME="/home/tikzit"
this line is wrong

[program:novnc]
command=/usr/bin/novnc_proxy

[program:novnc]
command=/usr/bin/other

[bad header!]
`
	got := failing(evaluate(t, artifact.SupervisordConf, viewOf(t, artifact.SupervisordConf, conf)))

	ids := make([]string, 0, len(got))
	for id := range got {
		ids = append(ids, id)
	}
	want := []string{"supervisor.key-value-lines", "supervisor.section-headers", "supervisor.unique-sections"}
	if diff := cmp.Diff(want, ids, cmpSorted); diff != "" {
		t.Errorf("failing rules mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(got["supervisor.unique-sections"].Reason, "program:novnc") {
		t.Errorf("unique-sections reason %q does not name the duplicate", got["supervisor.unique-sections"].Reason)
	}
}

func TestSupervisorScopedToFirstSection(t *testing.T) {
	// Only the first [program:vncserver] is consulted.
	conf := `[supervisord]
nodaemon=true

[program:vncserver]
command=/usr/bin/Xvnc

[program:vncserver]
command=/usr/bin/Xvnc -geometry 1280x800
`
	got := evaluate(t, artifact.SupervisordConf, viewOf(t, artifact.SupervisordConf, conf))
	if got["supervisor.vncserver-geometry"].Status != StatusFail {
		t.Errorf("vncserver-geometry = %s, want FAIL", got["supervisor.vncserver-geometry"])
	}
}

func TestComposePolicies(t *testing.T) {
	manifest := `version: "3.8"
services:
  tikzit_default:
    image: tikzit
    privileged: true
    networks: [tikzit_net]
  nginx:
    image: nginx
    network_mode: host
    volumes:
      - ./nginx.conf:/etc/nginx/nginx.conf
  certbot:
    image: certbot/certbot
    volumes: [./certs:/etc/letsencrypt]
networks:
  tikzit_net:
volumes:
  data:
`
	got := failing(evaluate(t, artifact.ComposeProd, viewOf(t, artifact.ComposeProd, manifest)))
	want := map[string]Verdict{
		"compose-prod.no-privileged":       Fail("service tikzit_default runs privileged"),
		"compose-prod.no-host-network":     Fail("service nginx uses host networking"),
		"compose-prod.services-on-network": Fail("services not on a network: nginx"),
		"compose-prod.vnc-password-env":    Fail(`expected "${VNC_PASSWORD}"`),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("verdicts mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeDevDependentRules(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     map[string]Status
	}{
		{
			name:     "tikzit missing",
			manifest: "version: '3'\nservices:\n  web:\n    image: web\n",
			want: map[string]Status{
				"compose.tikzit-service": StatusFail,
			},
		},
		{
			name:     "no ports",
			manifest: "version: '3'\nservices:\n  tikzit:\n    build: .\n",
			want: map[string]Status{
				"compose.tikzit-ports":     StatusFail,
				"compose.tikzit-port-8080": StatusFail,
			},
		},
		{
			name:     "wrong port",
			manifest: "version: '3'\nservices:\n  tikzit:\n    build: .\n    ports: ['9090:9090']\n",
			want: map[string]Status{
				"compose.tikzit-port-8080": StatusFail,
			},
		},
		{
			name:     "null version and imageless service",
			manifest: "version:\nservices:\n  tikzit:\n    ports: ['8080:8080']\n",
			want: map[string]Status{
				"compose.version":        StatusFail,
				"compose.service-images": StatusFail,
				"compose.schema":         StatusFail,
			},
		},
		{
			name:     "schema violation",
			manifest: "version: '3'\nservices:\n  tikzit:\n    image: t\n    ports: ['8080:8080']\n    restart: sometimes\n",
			want: map[string]Status{
				"compose.schema": StatusFail,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(map[string]Status)
			for id, v := range failing(evaluate(t, artifact.ComposeDev, viewOf(t, artifact.ComposeDev, tt.manifest))) {
				got[id] = v.Status
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("failing rules mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScriptSyntaxVerdicts(t *testing.T) {
	script := "#!/bin/bash\nset -e\n"

	rejected := stubChecker{result: extract.SyntaxResult{Diagnostic: "line 3: syntax error: unexpected end of file"}}
	got := evaluate(t, artifact.DeployScript, viewWith(t, artifact.DeployScript, script, rejected))
	if diff := cmp.Diff(Fail("line 3: syntax error: unexpected end of file"), got["script.deploy.syntax"]); diff != "" {
		t.Errorf("syntax verdict mismatch (-want +got):\n%s", diff)
	}

	broken := stubChecker{err: artifact.NewToolError("bash not found", nil)}
	got = evaluate(t, artifact.DeployScript, viewWith(t, artifact.DeployScript, script, broken))
	if got["script.deploy.syntax"].Status != StatusError {
		t.Errorf("syntax verdict = %s, want ERROR", got["script.deploy.syntax"])
	}
	if !got["script.deploy.shebang"].IsPass() {
		t.Errorf("shebang verdict = %s, want PASS", got["script.deploy.shebang"])
	}
}

func TestScriptStructuralRules(t *testing.T) {
	// "docker network create" only appears in a comment and an echo.
	script := `#!/bin/sh
# docker network create tikzit_net
echo "docker volume create"
mkdir -p /opt/tikzit
`
	got := failing(evaluate(t, artifact.DeployScript, viewOf(t, artifact.DeployScript, script)))

	for _, id := range []string{"script.deploy.network-create", "script.deploy.volume-create", "script.deploy.shebang", "script.deploy.error-handling"} {
		if got[id].Status != StatusFail {
			t.Errorf("%s = %s, want FAIL", id, got[id])
		}
	}
	if _, ok := got["script.deploy.mkdir"]; ok {
		t.Errorf("script.deploy.mkdir = %s, want PASS", got["script.deploy.mkdir"])
	}
}
