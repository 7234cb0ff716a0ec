package rules

import (
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

const (
	supervisordSection = "supervisord"
	vncserverProgram   = "program:vncserver"
	novncProgram       = "program:novnc"
)

func supervisorRules() []Rule {
	b := binder{artifact: artifact.SupervisordConf, kind: artifact.KindSupervisorConfig, prefix: "supervisor"}

	vnc := Section(vncserverProgram)

	return []Rule{
		b.rule("not-empty", "supervisord.conf is not empty", NotEmpty()),
		b.rule("supervisord-section", "defines the [supervisord] section", SectionDefined(supervisordSection)),
		b.rule("nodaemon", "supervisord runs in the foreground (nodaemon=true)",
			ScopedPresence(Section(supervisordSection), Regex(`(?m)^\s*nodaemon\s*=\s*true\b`), SkipIfAbsent())),
		b.rule("vncserver-program", "defines the vncserver program", SectionDefined(vncserverProgram)),
		b.rule("novnc-program", "defines the novnc program", SectionDefined(novncProgram)),
		b.rule("vncserver-command", "vncserver program has a command",
			ScopedPresence(vnc, Regex(`(?m)^\s*command\s*=`), SkipIfAbsent())),
		b.rule("vncserver-autorestart", "vncserver program sets autorestart",
			ScopedPresence(vnc, Regex(`(?m)^\s*autorestart\s*=`), SkipIfAbsent())),
		b.rule("vncserver-user", "vncserver program runs as a named user",
			ScopedPresence(vnc, Regex(`(?m)^\s*user\s*=`), SkipIfAbsent())),
		b.rule("vncserver-environment", "vncserver program sets environment variables",
			ScopedPresence(vnc, Regex(`(?m)^\s*environment\s*=`), SkipIfAbsent())),
		b.rule("vncserver-geometry", "vncserver command sets -geometry",
			ScopedPresence(vnc, Literal("-geometry"), SkipIfAbsent())),
		b.rule("novnc-command", "novnc program has a command",
			ScopedPresence(Section(novncProgram), Regex(`(?m)^\s*command\s*=`), SkipIfAbsent())),
		b.rule("logfile", "supervisord configures a logfile",
			ScopedPresence(Section(supervisordSection), Regex(`(?m)^\s*logfile\s*=`), SkipIfAbsent())),
		b.rule("logfile-unbounded", "supervisord logfile is unbounded (logfile_maxbytes=0)",
			ScopedPresence(Section(supervisordSection), Regex(`(?m)^\s*logfile_maxbytes\s*=\s*0\b`), SkipIfAbsent())),
		b.rule("section-headers", "section headers are well-formed", Predicate(checkSectionHeaders)),
		b.rule("key-value-lines", "every setting line has key=value form", Predicate(checkKeyValueLines)),
		b.rule("unique-sections", "no section is declared twice", Predicate(func(v *extract.SectionView) Verdict {
			if dups := v.Duplicates(); len(dups) > 0 {
				return Fail("duplicate sections: [%s]", strings.Join(dups, "], ["))
			}
			return Pass()
		})),
	}
}

func checkSectionHeaders(v *extract.SectionView) Verdict {
	if len(v.InvalidHeaders) > 0 {
		first := v.InvalidHeaders[0]
		return Fail("invalid section header on line %d: %s", first.Number, first.Text)
	}
	if len(v.Sections) == 0 {
		return Fail("no valid section headers found")
	}
	return Pass()
}

func checkKeyValueLines(v *extract.SectionView) Verdict {
	if len(v.Malformed) == 0 {
		return Pass()
	}
	first := v.Malformed[0]
	if len(v.Malformed) == 1 {
		return Fail("line %d: %s (%s)", first.Number, first.Text, first.Reason)
	}
	return Fail("line %d: %s (%s), and %d more", first.Number, first.Text, first.Reason, len(v.Malformed)-1)
}
