package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// cdpFrame is one DevTools protocol message.
type cdpFrame struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// devtoolsStub answers just enough of the DevTools protocol for chromedp to
// attach to a single page target.
type devtoolsStub struct {
	quitFile string

	mu        sync.Mutex
	methods   []string
	closeSeen bool
	dropped   bool
}

func (d *devtoolsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			d.mu.Lock()
			d.dropped = !d.closeSeen
			d.mu.Unlock()
			return
		}
		var req cdpFrame
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		d.mu.Lock()
		d.methods = append(d.methods, req.Method)
		d.mu.Unlock()

		result := `{}`
		var event *cdpFrame
		switch req.Method {
		case "Target.setDiscoverTargets":
			if req.SessionID == "" {
				event = &cdpFrame{
					Method: "Target.targetCreated",
					Params: json.RawMessage(`{"targetInfo":{"targetId":"T1","type":"page","title":"","url":"about:blank","attached":false,"canAccessOpener":false}}`),
				}
			}
		case "Target.attachToTarget":
			result = `{"sessionId":"S1"}`
		case "Runtime.evaluate":
			result = `{"result":{"type":"object","className":"Window"}}`
		case "Page.addScriptToEvaluateOnNewDocument":
			result = `{"identifier":"1"}`
		case "Browser.close":
			d.mu.Lock()
			d.closeSeen = true
			d.mu.Unlock()
			_ = os.WriteFile(d.quitFile, nil, 0o600)
		}

		reply, _ := json.Marshal(cdpFrame{ID: req.ID, SessionID: req.SessionID, Result: json.RawMessage(result)})
		if err := wsutil.WriteServerText(conn, reply); err != nil {
			return
		}
		if event != nil {
			msg, _ := json.Marshal(event)
			if err := wsutil.WriteServerText(conn, msg); err != nil {
				return
			}
		}
	}
}

func (d *devtoolsStub) state() (methods []string, closeSeen, dropped bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.methods...), d.closeSeen, d.dropped
}

// fakeChrome writes an executable that prints script to the temp dir.
func fakeChrome(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake browser needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-chrome")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- Launch Tests ---

func TestLaunch_SessionOutlivesLaunchContext(t *testing.T) {
	quit := filepath.Join(t.TempDir(), "quit")
	stub := &devtoolsStub{quitFile: quit}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	wsURL := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/devtools/browser/stub"
	exe := fakeChrome(t, fmt.Sprintf(`echo "DevTools listening on %s"
while [ ! -f %q ]; do sleep 0.05; done
`, wsURL, quit))

	l := NewChromeLauncher(Config{ChromePath: exe, StartTimeout: 10 * time.Second})
	t.Cleanup(func() { _ = l.Close() })

	launchCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	s, err := l.Launch(launchCtx)
	cancel()
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	// Long enough for a killed process to be reaped.
	time.Sleep(200 * time.Millisecond)

	cs := s.(*chromeSession)
	if err := cs.ctx.Err(); err != nil {
		t.Fatalf("session context ended after Launch returned: %v", err)
	}
	if err := chromedp.FromContext(cs.ctx).Browser.Process().Signal(syscall.Signal(0)); err != nil {
		t.Fatalf("browser process is gone: %v", err)
	}

	ctx, cancelCall := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCall()
	if err := s.InjectBeforeLoad(ctx, OpenShadowRootsScript); err != nil {
		t.Fatalf("InjectBeforeLoad() error = %v", err)
	}
	if _, _, dropped := stub.state(); dropped {
		t.Fatal("browser connection dropped while the session was open")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	methods, closeSeen, _ := stub.state()
	if !closeSeen {
		t.Errorf("expected a graceful Browser.close, got methods %v", methods)
	}
}

func TestLaunch_StartTimeout(t *testing.T) {
	exe := fakeChrome(t, "exec sleep 30\n")

	l := NewChromeLauncher(Config{ChromePath: exe, StartTimeout: 300 * time.Millisecond})
	t.Cleanup(func() { _ = l.Close() })

	start := time.Now()
	_, err := l.Launch(context.Background())
	if err == nil {
		t.Fatal("expected startup to time out")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("startup was not bounded, took %v", elapsed)
	}
}

func TestLaunch_BrowserExitsEarly(t *testing.T) {
	exe := fakeChrome(t, "echo 'cannot open display' >&2\nexit 1\n")

	l := NewChromeLauncher(Config{ChromePath: exe, StartTimeout: 10 * time.Second})
	t.Cleanup(func() { _ = l.Close() })

	_, err := l.Launch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cannot open display") {
		t.Errorf("expected browser output in error, got %v", err)
	}
}
