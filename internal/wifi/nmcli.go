package wifi

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"wifictl/internal/execx"
	"wifictl/internal/supervisor"
)

// Nmcli drives NetworkManager through nmcli.
type Nmcli struct {
	r      execx.Runner
	opts   Options
	scan   scanWindow
	status statusCache
}

var _ supervisor.Driver = (*Nmcli)(nil)

func NewNmcli(r execx.Runner, opts Options) *Nmcli {
	opts = opts.withDefaults()
	return &Nmcli{r: r, opts: opts, status: statusCache{ttl: opts.StatusTTL}}
}

// BeginScan only asks NetworkManager for a fresh scan when aggressive;
// otherwise its periodic background scan list is used.
func (n *Nmcli) BeginScan(aggressive bool) {
	settle := n.opts.ScanSettle
	if aggressive {
		if err := n.r.Run("nmcli", "device", "wifi", "rescan", "ifname", n.opts.Interface); err != nil {
			// NetworkManager refuses rescans while one is running; the cached
			// list is still usable.
			zap.S().Debugw("nmcli rescan refused", "interface", n.opts.Interface, "error", err)
		}
	} else {
		settle = 0
	}
	n.scan.begin(n.opts.Now(), settle)
}

func (n *Nmcli) PollScan() supervisor.ScanOutcome {
	ok, outcome := n.scan.ready(n.opts.Now())
	if !ok {
		return outcome
	}
	out, err := n.r.Output("nmcli", "-t", "-f", "SSID,SIGNAL", "device", "wifi", "list", "ifname", n.opts.Interface, "--rescan", "no")
	if err != nil {
		zap.S().Warnw("nmcli wifi list failed", "interface", n.opts.Interface, "error", err)
		return supervisor.ScanOutcome{Status: supervisor.ScanFailed}
	}
	return supervisor.ScanOutcome{Status: supervisor.ScanDone, Results: ParseWifiList(out)}
}

// Connect hands the secret to nmcli's --ask prompt on stdin so it never
// shows up in the process list.
func (n *Nmcli) Connect(name, secret string) {
	defer n.status.invalidate()
	var err error
	if secret == "" {
		err = n.r.Run("nmcli", "--wait", "0", "device", "wifi", "connect", name, "ifname", n.opts.Interface)
	} else {
		err = n.r.RunInput(secret+"\n", "nmcli", "--ask", "--wait", "0", "device", "wifi", "connect", name, "ifname", n.opts.Interface)
	}
	if err != nil {
		zap.S().Warnw("nmcli connect failed", "network", name, "error", err)
	}
}

func (n *Nmcli) IsAssociated() bool {
	return strings.HasPrefix(n.currentStatus()["GENERAL.STATE"], "100")
}

func (n *Nmcli) Disconnect() {
	defer n.status.invalidate()
	if err := n.r.Run("nmcli", "device", "disconnect", n.opts.Interface); err != nil {
		zap.S().Warnw("nmcli disconnect failed", "interface", n.opts.Interface, "error", err)
	}
}

// CurrentNetworkName reports the SSID of the access point in use, not the
// NetworkManager profile name.
func (n *Nmcli) CurrentNetworkName() (string, bool) {
	if !n.IsAssociated() {
		return "", false
	}
	fields, ok := n.inUse()
	if !ok || fields[1] == "" {
		return "", false
	}
	return fields[1], true
}

func (n *Nmcli) SignalStrength() (int, bool) {
	fields, ok := n.inUse()
	if !ok {
		return 0, false
	}
	pct, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, false
	}
	return PercentToDBm(pct), true
}

// inUse returns the IN-USE,SSID,SIGNAL row of the associated access point.
func (n *Nmcli) inUse() ([]string, bool) {
	out, err := n.r.Output("nmcli", "-t", "-f", "IN-USE,SSID,SIGNAL", "device", "wifi", "list", "ifname", n.opts.Interface, "--rescan", "no")
	if err != nil {
		return nil, false
	}
	for _, line := range strings.Split(out, "\n") {
		fields := SplitTerse(strings.TrimRight(line, "\r"))
		if len(fields) == 3 && strings.TrimSpace(fields[0]) == "*" {
			return fields, true
		}
	}
	return nil, false
}

func (n *Nmcli) currentStatus() map[string]string {
	return n.status.get(n.opts.Now(), func() (map[string]string, error) {
		out, err := n.r.Output("nmcli", "-t", "-f", "GENERAL.STATE", "device", "show", n.opts.Interface)
		if err != nil {
			return nil, err
		}
		m := map[string]string{}
		for _, line := range strings.Split(out, "\n") {
			k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
			if ok {
				m[k] = v
			}
		}
		return m, nil
	})
}

// ParseWifiList parses terse `SSID,SIGNAL` output and converts the signal
// percentage to dBm.
func ParseWifiList(out string) []supervisor.AccessPoint {
	var aps []supervisor.AccessPoint
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := SplitTerse(line)
		if len(fields) != 2 || fields[0] == "" {
			continue
		}
		pct, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		aps = append(aps, supervisor.AccessPoint{Name: fields[0], Signal: PercentToDBm(pct)})
	}
	return aps
}

// SplitTerse splits an nmcli terse line on unescaped colons and removes the
// backslash escapes.
func SplitTerse(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}
