package main

import (
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/ayoomidimeji/lariyu/platform/redis"
)

func TestGracefulShutdownDrains(t *testing.T) {
	var (
		entered = make(chan struct{})
		release = make(chan struct{})

		server = &http.Server{
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				close(entered)
				<-release

				w.WriteHeader(http.StatusNoContent)
			}),
		}
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	go server.Serve(ln)

	var (
		sigc = make(chan os.Signal, 1)
		done = gracefulShutdown(server, redis.Pool("127.0.0.1:0", ""), log.NewNopLogger(), sigc)

		statusc = make(chan int, 1)
	)

	go func() {
		res, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			statusc <- 0
			return
		}

		res.Body.Close()
		statusc <- res.StatusCode
	}()

	<-entered

	sigc <- syscall.SIGTERM

	// Teardown must not complete while a request is in flight.
	select {
	case <-done:
		t.Fatal("shutdown completed with request in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	if have, want := <-statusc, http.StatusNoContent; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}
