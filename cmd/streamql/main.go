// Command streamql is a minimal interactive prompt for the engine: it
// reads SQL line by line until a line ends with `;`, runs it, and prints
// whatever came back. The REPL itself is out of scope as a deliverable —
// this is the thin stdlib-bufio wiring SPEC_FULL.md §6 calls for, with
// no parsing or job logic of its own.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	uuid "github.com/satori/go.uuid"

	"github.com/streamql/streamql"
	"github.com/streamql/streamql/config"
)

func main() {
	cfg := config.Default()
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "streamql: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	engine := streamql.New(cfg)
	reader := bufio.NewReader(os.Stdin)

	for {
		sql, ok := readSQL(reader)
		if !ok {
			fmt.Println("Exited")
			return
		}
		trimmed := strings.TrimSpace(sql)
		if trimmed == "" {
			continue
		}
		if strings.EqualFold(trimmed, "exit;") {
			fmt.Println("Bye....")
			return
		}
		runSQL(engine, trimmed)
	}
}

// readSQL accumulates lines until one ends with ';', matching
// read_sql's prompt/continuation behavior. A line starting with '\'
// at the start of a statement is returned immediately as an internal
// command, bypassing the semicolon rule.
func readSQL(r *bufio.Reader) (string, bool) {
	var sql strings.Builder
	for {
		if sql.Len() == 0 {
			fmt.Print("> ")
		} else {
			fmt.Print("? ")
		}
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if err != nil && line == "" {
			return "", false
		}
		if line == "" {
			if err != nil {
				return sql.String(), true
			}
			continue
		}
		if strings.HasPrefix(line, "\\") && sql.Len() == 0 {
			return line, true
		}
		sql.WriteString(line)
		if strings.HasSuffix(line, ";") {
			return sql.String(), true
		}
		sql.WriteString("\n")
		if err != nil {
			return sql.String(), true
		}
	}
}

// runSQL races the query against Ctrl-C: an interrupt kills the most
// recently started job instead of the whole process, mirroring the
// original's tokio::select! between signal::ctrl_c() and the query future.
func runSQL(engine *streamql.Engine, sql string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	resultCh := make(chan struct {
		res streamql.RunResult
		err error
	}, 1)
	go func() {
		// A started job outlives this call; it ends through KILL JOB or
		// Ctrl-C, not when the prompt returns.
		res, err := engine.Run(context.Background(), sql)
		resultCh <- struct {
			res streamql.RunResult
			err error
		}{res, err}
	}()

	select {
	case <-sigCh:
		if jobID, ok := engine.LastRunningJobID(); ok {
			fmt.Printf("Kill job %s.\n", jobID)
			_ = engine.StopJob(jobID)
		} else {
			fmt.Println("Interrupted")
		}
		<-resultCh
	case out := <-resultCh:
		if out.err != nil {
			fmt.Println(out.err)
			return
		}
		switch {
		case out.res.Killed:
			fmt.Println("OK")
		case out.res.Jobs != nil:
			for _, id := range out.res.Jobs {
				fmt.Println(id)
			}
		case out.res.JobID != uuid.Nil:
			fmt.Println(out.res.JobID)
		default:
			fmt.Println("OK")
		}
	}
}
