package memoryplay

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Finder locates MemoryPlay hosts on the local network. The multicast
// probe itself is an external capability; implementations may shell
// out, speak multicast directly, or return canned results in tests.
type Finder interface {
	Find() ([]HostInfo, error)
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func() ([]HostInfo, error)

func (f FinderFunc) Find() ([]HostInfo, error) { return f() }

// CommandFinder runs an external finder program and parses one host
// per output line: "IPV6 IFNO TARGET_NAME OUTPUT_NAME LOOPBACK".
type CommandFinder struct {
	Command string
	Args    []string
}

func (c CommandFinder) Find() ([]HostInfo, error) {
	if c.Command == "" {
		return nil, fmt.Errorf("%w: no finder command configured", ErrSocketOpen)
	}
	cmd := exec.Command(c.Command, c.Args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v (%s)", ErrFindTarget, c.Command, err, strings.TrimSpace(stderr.String()))
	}

	var hosts []HostInfo
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			logrus.Warnf("finder: skipping malformed line %q", line)
			continue
		}
		ifno, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			logrus.Warnf("finder: bad interface number in %q", line)
			continue
		}
		loopback, _ := strconv.ParseBool(fields[4])
		hosts = append(hosts, HostInfo{
			IPAddress:       fields[0],
			InterfaceNumber: uint32(ifno),
			TargetName:      fields[2],
			OutputName:      fields[3],
			IsLoopback:      loopback,
		})
	}
	return hosts, nil
}

// DiscoverHosts runs the finder and fails if nothing answered.
func DiscoverHosts(f Finder) ([]HostInfo, error) {
	hosts, err := f.Find()
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, ErrNoHostsFound
	}
	return hosts, nil
}

// PickHost chooses the preferred host from a discovery result:
// the first loopback host when one exists, otherwise the first host.
func PickHost(hosts []HostInfo) (HostInfo, bool) {
	if len(hosts) == 0 {
		return HostInfo{}, false
	}
	for _, h := range hosts {
		if h.IsLoopback {
			return h, true
		}
	}
	return hosts[0], true
}

// ListTargets asks a host for the output targets it can reach. It uses
// a one-shot connection, sends Request=TargetList and accumulates
// "IP IFNO NAME" replies until the host moves on to another header.
func ListTargets(hostAddress string, interfaceNumber uint32) ([]TargetInfo, error) {
	conn, err := dialHost(hostAddress, interfaceNumber)
	if err != nil {
		return nil, err
	}
	s := &Session{conn: conn, connected: true}
	defer s.Close()

	if err := s.sendLocked(EncodeHeader(HeaderRequest, RequestTargetList)); err != nil {
		return nil, err
	}

	var targets []TargetInfo
	err = s.receiveLocked(func(key, value string) bool {
		if key != HeaderTargetList {
			return true
		}
		if t, ok := parseTargetLine(value); ok {
			targets = append(targets, t)
		}
		return false
	}, defaultReplyWait)
	if err != nil {
		// A host that only ever speaks TargetList ends the
		// exchange by falling silent; that is a result, not a
		// failure, as long as something was collected.
		if !errors.Is(err, ErrTimeout) || len(targets) == 0 {
			return nil, err
		}
	}
	return targets, nil
}

// parseTargetLine splits "IP_ADDRESS IF_NUMBER TARGET_NAME"; the name
// may itself contain spaces.
func parseTargetLine(value string) (TargetInfo, bool) {
	n1 := strings.Index(value, " ")
	if n1 < 0 {
		return TargetInfo{}, false
	}
	n2 := strings.Index(value[n1+1:], " ")
	if n2 < 0 {
		return TargetInfo{}, false
	}
	n2 += n1 + 1
	ifno, err := strconv.ParseUint(value[n1+1:n2], 10, 32)
	if err != nil {
		return TargetInfo{}, false
	}
	return TargetInfo{
		IPAddress:       value[:n1],
		InterfaceNumber: uint32(ifno),
		TargetName:      value[n2+1:],
	}, true
}
