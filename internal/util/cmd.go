package util

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecPrefix marks a watch argument as a command line to launch instead of a file.
const ExecPrefix = "exec:"

// CmdSpec describes a job runner subprocess.
type CmdSpec struct {
	Path string   // Binary name or path
	Args []string // Arguments
	Env  []string // Extra environment variables (KEY=VALUE), appended to the inherited ones
	Dir  string   // Working directory; empty = inherit
}

// ParseExec splits "exec:<command line>" on whitespace. ok is false for anything else.
func ParseExec(arg string) (spec CmdSpec, ok bool, err error) {
	if !strings.HasPrefix(arg, ExecPrefix) {
		return CmdSpec{}, false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(arg, ExecPrefix))
	if len(fields) == 0 {
		return CmdSpec{}, true, fmt.Errorf("empty command after %q", ExecPrefix)
	}
	return CmdSpec{Path: fields[0], Args: fields[1:]}, true, nil
}

// Resolve returns the absolute binary path, trying the path as given and then PATH.
func (s CmdSpec) Resolve() (string, error) {
	if strings.ContainsRune(s.Path, os.PathSeparator) {
		if _, err := os.Stat(s.Path); err != nil {
			return "", fmt.Errorf("could not find job runner at %q", s.Path)
		}
		return s.Path, nil
	}
	p, err := exec.LookPath(s.Path)
	if err != nil {
		return "", fmt.Errorf("could not find %q in PATH", s.Path)
	}
	return p, nil
}

// Command builds the exec.Cmd for path, usually the result of Resolve.
func (s CmdSpec) Command(path string) *exec.Cmd {
	cmd := exec.Command(path, s.Args...)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	if s.Env != nil {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	return cmd
}

// String returns a printable shell-like command line for titles and logs.
func (s CmdSpec) String() string {
	return shellQuote(s.Path, s.Args)
}

func shellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
