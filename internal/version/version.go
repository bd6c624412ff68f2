package version

const Value = "0.4.0"

func ScannerUserAgent() string {
	return "crawlprobe/" + Value + " (web security scanner)"
}

func ProbeUserAgent() string {
	return "crawlprobe-probe/" + Value
}
