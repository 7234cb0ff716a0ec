package config

// configSchema is the closed schema a conform.cue file is unified with.
// Unknown fields are rejected and every omitted field takes its default.
const configSchema = `
#Level: "trace" | "debug" | "info" | "warn" | "error"

#Config: {
	root:        string | *"."
	paths:       [string]: string & !=""
	parallelism: int & >=1 & <=64 | *4
	shell:       string & !="" | *"bash"
	format:      "text" | "markdown" | "json" | *"text"

	history: {
		enabled: bool | *false
		path:    string | *".conform/history.db"
	}

	metrics: {
		textfile: string | *""
		listen:   string | *""
	}

	tracing: {
		enabled:  bool | *false
		exporter: "stdout" | "otlp" | *"stdout"
		endpoint: string | *""
	}

	logging: {
		level:  #Level | *"info"
		format: "console" | "json" | *"console"
	}

	remote: {
		target:      string | *""
		identity:    string | *""
		known_hosts: string | *""
		port:        int & >0 & <65536 | *22
	}
}
`
