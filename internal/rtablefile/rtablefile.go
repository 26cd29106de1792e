// Package rtablefile parses the simple text routing-table format used by
// offline/standalone runs of the router (when it is not configured by a
// controller's RTABLE_ENTRY messages): one entry per line,
//
//	<destination> <gateway> <mask> <interface-name> [metric]
//
// blank lines and lines starting with '#' are ignored.
package rtablefile

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/routing"
)

// Parse reads routing entries from r, resolving each line's interface name
// against ifaces. Entries are returned in file order, which Table.Lookup
// uses as its final tie-breaker.
func Parse(r io.Reader, ifaces iface.List) ([]routing.Entry, error) {
	var entries []routing.Entry
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseLine(line, ifaces)
		if err != nil {
			return nil, errors.Wrapf(err, "rtable line %d", lineNum)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "rtable: reading")
	}
	return entries, nil
}

func parseLine(line string, ifaces iface.List) (routing.Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return routing.Entry{}, fmt.Errorf("expected at least 4 fields, got %d", len(fields))
	}

	dest, err := parseAddr(fields[0])
	if err != nil {
		return routing.Entry{}, errors.Wrap(err, "destination")
	}
	gateway, err := parseAddr(fields[1])
	if err != nil {
		return routing.Entry{}, errors.Wrap(err, "gateway")
	}
	mask, err := parseAddr(fields[2])
	if err != nil {
		return routing.Entry{}, errors.Wrap(err, "mask")
	}

	ifName := fields[3]
	egress := ifaces.ByName(ifName)
	if egress == nil {
		return routing.Entry{}, fmt.Errorf("unknown interface %q", ifName)
	}

	var metric uint16
	if len(fields) >= 5 {
		m, err := strconv.ParseUint(fields[4], 10, 16)
		if err != nil {
			return routing.Entry{}, errors.Wrap(err, "metric")
		}
		metric = uint16(m)
	}

	return routing.Entry{
		Dest:    dest,
		Mask:    mask,
		Gateway: gateway,
		Metric:  metric,
		Iface:   egress,
	}, nil
}

func parseAddr(s string) ([4]byte, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return [4]byte{}, fmt.Errorf("invalid IPv4 address %q", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return [4]byte{}, fmt.Errorf("not an IPv4 address %q", s)
	}
	return [4]byte(v4), nil
}
