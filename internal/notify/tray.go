package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
)

// The tray helper is a separate program. Its contract with focus:
//
//   - on start it writes <config dir>/focus-tray/focus-tray.lock containing
//     "port|pid|secret" and removes it on exit;
//   - its executable name starts with "focus-tray";
//   - it accepts POST / on 127.0.0.1:port with a JSON trayPayload body and
//     the secret in the X-Focus-Secret header, answering 200 when shown.
const (
	trayName      = "focus-tray"
	trayLockName  = trayName + ".lock"
	traySecretHdr = "X-Focus-Secret"
	trayShowFor   = 8 * time.Second
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

var errTrayNotRunning = errors.New(trayName + " is not running")

// trayLock is the parsed lockfile of a running tray helper.
type trayLock struct {
	port   int
	pid    int
	secret string
}

// parseTrayLock reads "port|pid|secret". Surrounding whitespace is ignored.
func parseTrayLock(data []byte) (trayLock, error) {
	fields := strings.Split(strings.TrimSpace(string(data)), "|")
	if len(fields) != 3 {
		return trayLock{}, fmt.Errorf("tray lockfile: want port|pid|secret, got %d fields", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var l trayLock
	var err error
	if l.port, err = strconv.Atoi(fields[0]); err != nil || l.port < 1 || l.port > 65535 {
		return trayLock{}, fmt.Errorf("tray lockfile: bad port %q", fields[0])
	}
	if l.pid, err = strconv.Atoi(fields[1]); err != nil || l.pid < 1 {
		return trayLock{}, fmt.Errorf("tray lockfile: bad pid %q", fields[1])
	}
	if l.secret = fields[2]; l.secret == "" {
		return trayLock{}, errors.New("tray lockfile: empty secret")
	}
	return l, nil
}

// checkProcess rejects a stale lockfile whose pid is gone or was reused.
func (l trayLock) checkProcess() error {
	p, err := findProcessFunc(l.pid)
	if err != nil || p == nil {
		return errTrayNotRunning
	}
	if !strings.HasPrefix(p.Executable(), trayName) {
		return fmt.Errorf("pid %d is %s, not %s", l.pid, p.Executable(), trayName)
	}
	return nil
}

func (l trayLock) url() string {
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(l.port)) + "/"
}

// Tray posts notifications to a running tray helper.
type Tray struct {
	dir    string
	client *http.Client
}

type trayPayload struct {
	Channel    string `json:"channel"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	DurationMs int64  `json:"duration_ms"`
}

// NewTray returns a tray notifier reading its lockfile from dir, or from the
// helper's config directory when dir is empty.
func NewTray(dir string) *Tray {
	return &Tray{dir: dir, client: &http.Client{Timeout: 5 * time.Second}}
}

func (t *Tray) Notify(ctx context.Context, ch Channel, title, message string) error {
	lock, err := t.lock()
	if err != nil {
		return err
	}
	body, err := json.Marshal(trayPayload{
		Channel:    string(ch),
		Title:      title,
		Text:       message,
		DurationMs: trayShowFor.Milliseconds(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lock.url(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(traySecretHdr, lock.secret)

	res, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s: %w", trayName, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s answered %d: %s", trayName, res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// lock loads and checks the lockfile of the helper.
func (t *Tray) lock() (trayLock, error) {
	dir := t.dir
	if dir == "" {
		var err error
		if dir, err = trayConfigDir(); err != nil {
			return trayLock{}, err
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, trayLockName))
	if errors.Is(err, os.ErrNotExist) {
		return trayLock{}, errTrayNotRunning
	}
	if err != nil {
		return trayLock{}, fmt.Errorf("read tray lockfile: %w", err)
	}
	lock, err := parseTrayLock(data)
	if err != nil {
		return trayLock{}, err
	}
	return lock, lock.checkProcess()
}

func trayConfigDir() (string, error) {
	base, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, trayName), nil
}
