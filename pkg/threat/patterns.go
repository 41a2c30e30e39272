package threat

import "regexp"

var (
	sqlPatterns = compileAll(
		`(?i)\bunion\b[\s(]+(all\s+)?select\b`,
		`(?i)['"]\s*(or|and)\s+['"]?\w+['"]?\s*(=|<|>|\blike\b)`,
		`(?i)\b(or|and)\s+\d+\s*=\s*\d+`,
		`(?i);\s*(drop|delete|insert|update|alter|create|truncate|exec|shutdown)\b`,
		`['"]\s*(--|#|/\*)`,
		`(?i)\b(drop|truncate)\s+(table|database|schema)\b`,
		`(?i)\binsert\s+into\s+\w+\s*(\(|values\b|select\b)`,
		`(?i)\bdelete\s+from\s+\w+\s*(where\b|;)`,
		`(?i)(\bexec(ute)?\s*\(|\bxp_cmdshell\b|\bwaitfor\s+delay\b|\bbenchmark\s*\(|\bsleep\s*\(\s*\d+\s*\))`,
	)

	xssPatterns = compileAll(
		`(?i)<\s*script\b`,
		`(?i)<\s*/\s*script\s*>`,
		`(?i)\b(java|vb)script\s*:`,
		`(?i)(^|[\s"'/;<])on[a-z]+\s*=`,
		`(?i)<\s*(iframe|object|embed|applet|meta|base|frameset)\b`,
		`(?i)\bexpression\s*\(`,
		`(?i)data\s*:\s*text/html`,
		`(?i)\b(document\.cookie|document\.write|window\.location)`,
	)

	commandPatterns = compileAll(
		"(?i)[;&|`]\\s*(ls|cat|rm|wget|curl|nc|ncat|netcat|bash|sh|zsh|chmod|chown|kill|ping|whoami|id|uname|python[0-9.]*|perl|ruby|php|powershell|cmd)\\b",
		`\$\([^)]*\)`,
		"`[^`]+`",
		`(?i)(/bin/(ba|z)?sh\b|/usr/bin/\w+|cmd\.exe|powershell\.exe)`,
		`(?i)>\s*/(dev|etc|tmp)/`,
	)

	pathTraversalPatterns = compileAll(
		`\.\.[/\\]`,
		`(?i)%2e%2e(%2f|%5c|/|\\)`,
		`(?i)\.\.(%2f|%5c|%252f|%255c|%c0%af|%c1%9c)`,
		`(?i)%252e%252e`,
		`(?i)(/etc/(passwd|shadow|hosts)\b|\b[a-z]:\\windows\\|/proc/self/)`,
	)

	ldapPatterns = compileAll(
		`\*\)\s*\(`,
		`\)\s*\(\s*[|&!]`,
		`\(\s*[|&]\s*\(\s*\w+\s*=`,
		`\(\s*\w+\s*=\s*\*\s*\)`,
		`(?i)objectclass\s*=\s*\*`,
	)

	nosqlPatterns = compileAll(
		`(?i)\$(where|ne|eq|gt|gte|lt|lte|in|nin|regex|exists|or|and|not|nor|expr|elemmatch)\b`,
		`(?i)\{\s*["']?\$[a-z]+["']?\s*:`,
		`(?i)\bdb\.[a-z_]\w*\.(find|insert|update|remove|drop|aggregate)\s*\(`,
		`(?i)\bthis\.\w+\s*(==|!=|>|<)`,
	)
)

// DefaultFamilies returns the built-in pattern table in detection order.
func DefaultFamilies() []Family {
	return []Family{
		{Category: SQLInjection, Patterns: sqlPatterns},
		{Category: XSS, Patterns: xssPatterns},
		{Category: CommandInjection, Patterns: commandPatterns},
		{Category: PathTraversal, Patterns: pathTraversalPatterns},
		{Category: LDAPInjection, Patterns: ldapPatterns},
		{Category: NoSQLInjection, Patterns: nosqlPatterns},
	}
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}
