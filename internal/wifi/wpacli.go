package wifi

import (
	"encoding/hex"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"wifictl/internal/execx"
	"wifictl/internal/supervisor"
)

// WpaCli drives wpa_supplicant through wpa_cli.
type WpaCli struct {
	r      execx.Runner
	opts   Options
	scan   scanWindow
	status statusCache
}

var _ supervisor.Driver = (*WpaCli)(nil)

func NewWpaCli(r execx.Runner, opts Options) *WpaCli {
	opts = opts.withDefaults()
	return &WpaCli{r: r, opts: opts, status: statusCache{ttl: opts.StatusTTL}}
}

func (w *WpaCli) BeginScan(aggressive bool) {
	settle := w.opts.ScanSettle
	if aggressive {
		// wpa_cli has no active/passive switch; give the radio more dwell time.
		settle *= 2
	}
	out, err := w.output("scan")
	if err != nil || !isOK(out) {
		zap.S().Warnw("wpa_cli scan rejected", "interface", w.opts.Interface, "output", out, "error", err)
		w.scan.fail()
		return
	}
	w.scan.begin(w.opts.Now(), settle)
}

func (w *WpaCli) PollScan() supervisor.ScanOutcome {
	ok, outcome := w.scan.ready(w.opts.Now())
	if !ok {
		return outcome
	}
	out, err := w.output("scan_results")
	if err != nil {
		zap.S().Warnw("wpa_cli scan_results failed", "interface", w.opts.Interface, "error", err)
		return supervisor.ScanOutcome{Status: supervisor.ScanFailed}
	}
	return supervisor.ScanOutcome{Status: supervisor.ScanDone, Results: ParseScanResults(out)}
}

// Connect replaces every configured network with a single entry for name and
// selects it. Association completes asynchronously.
func (w *WpaCli) Connect(name, secret string) {
	defer w.status.invalidate()
	if _, err := w.output("remove_network", "all"); err != nil {
		zap.S().Debugw("wpa_cli remove_network failed", "error", err)
	}
	id, err := w.output("add_network")
	if err != nil {
		zap.S().Warnw("wpa_cli add_network failed", "network", name, "error", err)
		return
	}
	id = lastLine(id)
	if _, err := strconv.Atoi(id); err != nil {
		zap.S().Warnw("wpa_cli add_network returned no id", "network", name, "output", id)
		return
	}
	steps := [][]string{{"set_network", id, "ssid", hex.EncodeToString([]byte(name))}}
	if secret == "" {
		steps = append(steps, []string{"set_network", id, "key_mgmt", "NONE"})
	} else {
		steps = append(steps, []string{"set_network", id, "psk", pskArg(secret)})
	}
	steps = append(steps, []string{"select_network", id}, []string{"reconnect"})
	for _, args := range steps {
		out, err := w.output(args...)
		if err != nil || !isOK(out) {
			zap.S().Warnw("wpa_cli command failed", "command", args[0], "network", name, "output", out, "error", err)
			return
		}
	}
}

func (w *WpaCli) IsAssociated() bool {
	return w.currentStatus()["wpa_state"] == "COMPLETED"
}

func (w *WpaCli) Disconnect() {
	defer w.status.invalidate()
	if out, err := w.output("disconnect"); err != nil || !isOK(out) {
		zap.S().Warnw("wpa_cli disconnect failed", "interface", w.opts.Interface, "output", out, "error", err)
	}
}

func (w *WpaCli) CurrentNetworkName() (string, bool) {
	st := w.currentStatus()
	if st["wpa_state"] != "COMPLETED" {
		return "", false
	}
	name, ok := st["ssid"]
	if !ok {
		return "", false
	}
	return DecodeSSID(name), true
}

func (w *WpaCli) SignalStrength() (int, bool) {
	out, err := w.output("signal_poll")
	if err != nil {
		return 0, false
	}
	v, ok := ParseKeyValues(out)["RSSI"]
	if !ok {
		return 0, false
	}
	rssi, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return rssi, true
}

func (w *WpaCli) currentStatus() map[string]string {
	return w.status.get(w.opts.Now(), func() (map[string]string, error) {
		out, err := w.output("status")
		if err != nil {
			return nil, err
		}
		return ParseKeyValues(out), nil
	})
}

func (w *WpaCli) output(args ...string) (string, error) {
	return w.r.Output("wpa_cli", append([]string{"-i", w.opts.Interface}, args...)...)
}

// ParseScanResults parses `wpa_cli scan_results`. Hidden networks are
// skipped.
func ParseScanResults(out string) []supervisor.AccessPoint {
	var aps []supervisor.AccessPoint
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(fields) < 5 {
			continue
		}
		signal, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			continue
		}
		name := DecodeSSID(fields[4])
		if name == "" || name[0] == 0 {
			continue
		}
		aps = append(aps, supervisor.AccessPoint{Name: name, Signal: signal})
	}
	return aps
}

// pskArg formats a secret for `set_network psk`. wpa_supplicant takes a
// passphrase verbatim between the outer quotes and 64 hex digits as a raw key.
func pskArg(secret string) string {
	if len(secret) == 64 {
		if _, err := hex.DecodeString(secret); err == nil {
			return secret
		}
	}
	return `"` + secret + `"`
}

// DecodeSSID reverses the escaping wpa_cli applies to SSIDs: `\\`, `\"`,
// `\n`, `\r`, `\t`, `\e`, `\xNN` and up to three octal digits.
func DecodeSSID(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out = append(out, s[i])
			continue
		}
		i++
		switch c := s[i]; {
		case c == 'n':
			out = append(out, '\n')
		case c == 'r':
			out = append(out, '\r')
		case c == 't':
			out = append(out, '\t')
		case c == 'e':
			out = append(out, 0x1b)
		case c == 'x':
			j := i + 1
			for j < len(s) && j < i+3 && isHexDigit(s[j]) {
				j++
			}
			if j == i+1 {
				out = append(out, '\\', 'x')
				continue
			}
			v, _ := strconv.ParseUint(s[i+1:j], 16, 8)
			out = append(out, byte(v))
			i = j - 1
		case c >= '0' && c <= '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 16)
			out = append(out, byte(v))
			i = j - 1
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// ParseKeyValues parses key=value lines as printed by `status` and
// `signal_poll`.
func ParseKeyValues(out string) map[string]string {
	m := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || k == "" {
			continue
		}
		m[k] = v
	}
	return m
}

func isOK(out string) bool {
	return lastLine(out) == "OK"
}

func lastLine(out string) string {
	out = strings.TrimSpace(out)
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	return strings.TrimSpace(out)
}
