// Package runas executes commands as another local user via sudo.
package runas

import (
	"bytes"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/pkg/errors"
)

// RequiredTools are the external commands user delegation depends on.
var RequiredTools = []string{"sudo", "mkdir", "cp", "rsync"}

// CheckTools verifies every delegation tool is present on PATH. Called up
// front when a copy user is configured so a missing tool aborts the run
// before anything destructive happens.
func CheckTools() error {
	for _, tool := range RequiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			return errors.Wrapf(err, "required command %q not found on PATH", tool)
		}
	}
	return nil
}

// Run executes argv synchronously, prefixed with "sudo -u username" when
// username names a user other than the one running this process. It returns
// the command's stdout; a non-zero exit surfaces the captured stderr as the
// error message.
func Run(username string, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}

	if username != "" && username != currentUser() {
		argv = append([]string{"sudo", "-u", username}, argv...)
	}

	cmd := exec.Command(argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Errorf("command %s failed: %s", argv[0], msg)
	}

	return stdout.String(), nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
