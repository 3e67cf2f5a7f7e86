package supervisor

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"testing"

	"github.com/yaklabco/zoar/pkg/ipc"
)

var (
	helperMode  string
	helperUpper bool
	helperExit  int
)

func init() {
	flag.StringVar(&helperMode, "helper-mode", "", "")
	flag.BoolVar(&helperUpper, "helper-upper", false, "")
	flag.IntVar(&helperExit, "helper-exit", -1, "")
}

func TestMain(m *testing.M) {
	flag.Parse()

	if helperUpper {
		data, _ := io.ReadAll(os.Stdin)
		_, _ = fmt.Fprint(os.Stdout, strings.ToUpper(string(data)))
		os.Exit(0)
	}
	if helperExit >= 0 {
		_, _ = io.Copy(os.Stdout, os.Stdin)
		os.Exit(helperExit)
	}
	if helperMode != "" {
		os.Exit(fakeRunner(helperMode))
	}

	os.Exit(m.Run())
}

// fakeRunner speaks the child side of the protocol.
func fakeRunner(mode string) int {
	reader := ipc.NewReader(os.NewFile(ipc.ChildReadFD, "ipc-in"))
	writer := ipc.NewWriter(os.NewFile(ipc.ChildWriteFD, "ipc-out"))

	msg, err := reader.Read()
	if err != nil {
		return 255
	}

	switch mode {
	case "done":
		for _, f := range msg.Files {
			_, _ = fmt.Fprintf(os.Stdout, "ok 1 %s\n", f)
		}
		_, _ = fmt.Fprintf(os.Stdout, "generation %d\n", msg.Options.Generation)
		harnesses := make([]ipc.Summary, 0, len(msg.Files))
		for _, f := range msg.Files {
			harnesses = append(harnesses, ipc.Summary{File: f, Pass: true, Count: 1, SuccessCount: 1})
		}
		_ = writer.Write(ipc.Done(harnesses))
		return 0
	case "fail":
		_ = writer.Write(ipc.Done([]ipc.Summary{{Pass: false, Count: 2, FailureCount: 1, SuccessCount: 1}}))
		return 0
	case "error":
		_ = writer.Write(ipc.Error(fmt.Errorf("cannot load %s", strings.Join(msg.Files, ","))))
		return 255
	case "start":
		_ = writer.Write(ipc.Start(msg.Files, *msg.Options))
		return 0
	case "crash":
		return 7
	case "hang":
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGTERM)
		<-sig
		return 143
	}
	return 255
}
