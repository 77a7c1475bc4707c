// Package parse turns one raw input line into the structure the executor
// consumes: pipeline stages split on |, endpoint redirections, and the
// background flag. The raw line is kept verbatim for job display.
package parse

import (
	"fmt"
	"strings"
)

// Cmdline is one parsed input line.
type Cmdline struct {
	Stages     [][]string // one argv per pipeline stage, in order
	In         string     // input redirection path; "" inherits stdin
	Out        string     // output redirection path; "" inherits stdout
	Background bool
	Raw        string // original line, used as the job display text
}

// Parse tokenizes line into a Cmdline. A blank line yields (nil, nil).
func Parse(line string) (*Cmdline, error) {
	lx := newLexer(line)
	cl := &Cmdline{Raw: strings.TrimSpace(line)}
	var stage []string

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokEOF:
			if len(stage) > 0 {
				cl.Stages = append(cl.Stages, stage)
			} else if len(cl.Stages) > 0 {
				return nil, fmt.Errorf("missing command after |")
			}
			if len(cl.Stages) == 0 {
				if cl.In != "" || cl.Out != "" || cl.Background {
					return nil, fmt.Errorf("missing command")
				}
				return nil, nil
			}
			return cl, nil
		case tokWord:
			if cl.Background {
				return nil, fmt.Errorf("unexpected token after &")
			}
			stage = append(stage, tok.text)
		case tokPipe:
			if cl.Background {
				return nil, fmt.Errorf("unexpected token after &")
			}
			if len(stage) == 0 {
				return nil, fmt.Errorf("missing command before |")
			}
			cl.Stages = append(cl.Stages, stage)
			stage = nil
		case tokRedirIn, tokRedirOut:
			if cl.Background {
				return nil, fmt.Errorf("unexpected token after &")
			}
			target, err := lx.next()
			if err != nil {
				return nil, err
			}
			if target.kind != tokWord {
				return nil, fmt.Errorf("missing file name after %s", tok.text)
			}
			if tok.kind == tokRedirIn {
				cl.In = target.text
			} else {
				cl.Out = target.text
			}
		case tokAmp:
			if cl.Background {
				return nil, fmt.Errorf("unexpected token after &")
			}
			if len(stage) == 0 && len(cl.Stages) == 0 {
				return nil, fmt.Errorf("missing command before &")
			}
			cl.Background = true
		}
	}
}
