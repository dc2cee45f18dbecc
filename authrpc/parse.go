package authrpc

import (
	"strings"

	"github.com/pkg/errors"
)

// Command is one line written to a conversation's ctl file: a verb
// plus its k=v parameters, matching the shape auth_rpc_parse expects.
type Command struct {
	Verb   string
	Params map[string]string
}

// ParseCommand splits a line into a verb and its parameters, e.g.
// "start user=glenda auth-id=main proto=ed25519" becomes
// Verb: "start", Params: {"user": "glenda", "auth-id": "main", "proto": "ed25519"}.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("authrpc: empty command")
	}
	cmd := Command{Verb: fields[0], Params: make(map[string]string, len(fields)-1)}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return Command{}, errors.Errorf("authrpc: malformed parameter %q", f)
		}
		cmd.Params[k] = v
	}
	return cmd, nil
}

// Require reports an error naming the first of keys missing from the
// command's parameters, if any.
func (c Command) Require(keys ...string) error {
	for _, k := range keys {
		if _, ok := c.Params[k]; !ok {
			return errors.Errorf("authrpc: %s missing required parameter %q", c.Verb, k)
		}
	}
	return nil
}
