package sandbox

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sanix-darker/git-ci/pkg/types"
)

var dangerousPatterns = compileDangerousPatterns()

func compileDangerousPatterns() []*regexp.Regexp {
	raw := []string{
		`rm\s+.*-rf?\s*/`,
		`dd\s+.*of=/dev/`,
		`>\s*/dev/sd[a-z]`,
		`mkfs\.`,
		`fdisk\s+/dev/`,
		`mount\s+.*\s+/`,
		`chroot\s+/`,
		`sudo\s+`,
		`su\s+`,
		`bash\s+-c\s+.*rm.*-rf`,
		`sh\s+-c\s+.*rm.*-rf`,
		`eval\s+.*rm.*-rf`,
		`:\(\)\{.*;\};:`,
		`/proc/sys/`,
		`/etc/passwd`,
		`/etc/shadow`,
		`nc\s+.*-e`,
		`wget\s+.*\|\s*sh`,
		`curl\s+.*\|\s*sh`,
	}
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile(p)
		if err != nil {
			logrus.Warnf("sandbox: invalid dangerous pattern %q: %v", p, err)
			continue
		}
		patterns = append(patterns, re)
	}
	return patterns
}

// Sandbox runs commands inside an isolated workspace copy, rejecting
// anything matching a dangerous pattern or not on the command whitelist,
// grounded on crates/runtime/src/sandbox.rs.
type Sandbox struct {
	config    Config
	workspace string
}

// New creates a sandbox with a private temp workspace.
func New(config Config) (*Sandbox, error) {
	dir, err := os.MkdirTemp("", "git-ci-sandbox-*")
	if err != nil {
		return nil, setupError("failed to create sandbox workspace: " + err.Error())
	}
	logrus.Infof("sandbox: created workspace %s", dir)
	return &Sandbox{config: config, workspace: dir}, nil
}

// Close removes the sandbox's temp workspace.
func (s *Sandbox) Close() error {
	return os.RemoveAll(s.workspace)
}

// ExecuteCommand validates, isolates, and runs a command, returning its
// captured output.
func (s *Sandbox) ExecuteCommand(ctx context.Context, command []string, env []string, workingDir string) (types.ContainerOutput, error) {
	if len(command) == 0 {
		return types.ContainerOutput{}, executionError("empty command")
	}

	commandStr := strings.Join(command, " ")

	if err := s.validateCommand(commandStr); err != nil {
		return types.ContainerOutput{}, err
	}

	sandboxDir, err := s.setupEnvironment(workingDir)
	if err != nil {
		return types.ContainerOutput{}, err
	}

	return s.executeWithLimits(ctx, commandStr, env, sandboxDir)
}

func (s *Sandbox) validateCommand(commandStr string) error {
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(commandStr) {
			logrus.Warnf("sandbox: blocked dangerous command pattern: %s", commandStr)
			return dangerousPattern(commandStr)
		}
	}

	for _, part := range splitShellCommand(commandStr) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		commandName := filepath.Base(fields[0])

		if isShellBuiltin(commandName) {
			continue
		}

		if _, blocked := s.config.BlockedCommands[commandName]; blocked {
			logrus.Warnf("sandbox: blocked command: %s", commandName)
			return blockedCommand(commandName)
		}

		if s.config.StrictMode {
			if _, allowed := s.config.AllowedCommands[commandName]; !allowed {
				logrus.Warnf("sandbox: command not in whitelist (strict mode): %s", commandName)
				return blockedCommand(commandName)
			}
		}
	}

	logrus.Infof("sandbox: command validation passed: %s", commandStr)
	return nil
}

// splitShellCommand breaks a command string by shell operators (&&, ||, ;,
// |) in sequence. This is a heuristic split, not a real shell parser: it
// does not respect quoting.
func splitShellCommand(commandStr string) []string {
	parts := []string{commandStr}
	for _, sep := range []string{"&&", "||", ";", "|"} {
		var next []string
		for _, part := range parts {
			for _, piece := range strings.Split(part, sep) {
				piece = strings.TrimSpace(piece)
				if piece != "" {
					next = append(next, piece)
				}
			}
		}
		parts = next
	}
	return parts
}

func isShellBuiltin(command string) bool {
	_, ok := shellBuiltins[command]
	return ok
}

func (s *Sandbox) setupEnvironment(workingDir string) (string, error) {
	sandboxWorkspace := filepath.Join(s.workspace, "workspace")
	if err := os.MkdirAll(sandboxWorkspace, 0o755); err != nil {
		return "", setupError("failed to create sandbox workspace: " + err.Error())
	}

	if info, err := os.Stat(workingDir); err == nil && info.IsDir() {
		if err := s.copySafeFiles(workingDir, sandboxWorkspace); err != nil {
			return "", err
		}
	}

	logrus.Infof("sandbox: environment ready: %s", sandboxWorkspace)
	return sandboxWorkspace, nil
}

// copySafeFiles recursively copies source into dest, skipping credential
// files/directories and build-artifact directories.
func (s *Sandbox) copySafeFiles(source, dest string) error {
	entries, err := os.ReadDir(source)
	if err != nil {
		return setupError("failed to read source directory: " + err.Error())
	}

	for _, entry := range entries {
		name := entry.Name()
		if shouldSkipFile(name) {
			continue
		}

		srcPath := filepath.Join(source, name)
		destPath := filepath.Join(dest, name)

		if entry.IsDir() {
			if shouldSkipDirectory(name) {
				continue
			}
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return setupError("failed to create directory: " + err.Error())
			}
			if err := s.copySafeFiles(srcPath, destPath); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(srcPath, destPath); err != nil {
			return setupError("failed to copy file: " + err.Error())
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func shouldSkipFile(filename string) bool {
	for _, needle := range dangerousFileNeedles {
		if strings.Contains(filename, needle) {
			return true
		}
	}
	return strings.HasPrefix(filename, ".") && filename != ".gitignore" && filename != ".github"
}

func shouldSkipDirectory(dirname string) bool {
	_, ok := skipDirectories[dirname]
	return ok
}

func (s *Sandbox) executeWithLimits(ctx context.Context, commandStr string, env []string, workingDir string) (types.ContainerOutput, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.config.MaxExecutionTime)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, "sh", "-c", commandStr)
	cmd.Dir = workingDir

	filteredEnv := make([]string, 0, len(env))
	for _, kv := range env {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		if _, unsafe := dangerousEnvVars[kv[:idx]]; unsafe {
			continue
		}
		filteredEnv = append(filteredEnv, kv)
	}
	filteredEnv = append(filteredEnv, "WRKFLW_SANDBOXED=true", "WRKFLW_SANDBOX_MODE=strict")
	cmd.Env = filteredEnv

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logrus.Infof("sandbox: executing command: %s (timeout: %s)", commandStr, s.config.MaxExecutionTime)
	start := time.Now()

	err := cmd.Run()
	elapsed := time.Since(start)

	if timeoutCtx.Err() == context.DeadlineExceeded {
		logrus.Warnf("sandbox: command timed out after %.2fs", elapsed.Seconds())
		return types.ContainerOutput{}, executionTimeout(uint64(s.config.MaxExecutionTime.Seconds()))
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return types.ContainerOutput{}, executionError(err.Error())
		}
	}

	logrus.Infof("sandbox: command completed in %.2fs", elapsed.Seconds())
	return types.ContainerOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}
