// Package sandbox runs workflow commands outside Docker/Podman by
// restricting them to a vetted command set inside an isolated workspace
// copy, for hosts where no container runtime is available.
package sandbox

import "time"

// Config controls what a Sandbox will let a command do.
type Config struct {
	MaxExecutionTime time.Duration
	MaxMemoryMB      uint64
	MaxCPUPercent    uint64
	AllowedCommands  map[string]struct{}
	BlockedCommands  map[string]struct{}
	AllowNetwork     bool
	MaxProcesses     uint32
	StrictMode       bool
}

// DefaultConfig mirrors crates/runtime/src/sandbox.rs's Default impl: a
// broad developer-tool allowlist, a blacklist of destructive/system
// commands, strict mode on, five minute timeout.
func DefaultConfig() Config {
	return Config{
		MaxExecutionTime: 5 * time.Minute,
		MaxMemoryMB:      512,
		MaxCPUPercent:    80,
		AllowedCommands:  toSet(defaultAllowedCommands),
		BlockedCommands:  toSet(defaultBlockedCommands),
		AllowNetwork:     false,
		MaxProcesses:     10,
		StrictMode:       true,
	}
}

// WorkflowConfig relaxes the default for running trusted CI/CD workflow
// steps: longer timeout, more memory, network allowed, whitelist off.
func WorkflowConfig() Config {
	c := DefaultConfig()
	c.MaxExecutionTime = 30 * time.Minute
	c.MaxMemoryMB = 2048
	c.MaxProcesses = 50
	c.AllowNetwork = true
	c.StrictMode = false
	return c
}

// StrictConfig is for untrusted code: one minute, 128MB, a five-command
// whitelist, network off.
func StrictConfig() Config {
	c := DefaultConfig()
	c.MaxExecutionTime = time.Minute
	c.MaxMemoryMB = 128
	c.MaxProcesses = 5
	c.AllowNetwork = false
	c.StrictMode = true
	c.AllowedCommands = toSet([]string{"echo", "cat", "ls", "pwd", "date"})
	return c
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

var defaultAllowedCommands = []string{
	"echo", "printf", "cat", "head", "tail", "grep", "sed", "awk", "sort",
	"uniq", "wc", "cut", "tr", "which", "pwd", "env", "date", "basename", "dirname",
	"ls", "find", "mkdir", "touch", "cp", "mv",
	"git", "cargo", "rustc", "rustfmt", "clippy",
	"npm", "yarn", "node", "python", "python3", "pip", "pip3",
	"java", "javac", "maven", "gradle", "go", "dotnet",
	"tar", "gzip", "gunzip", "zip", "unzip",
}

var defaultBlockedCommands = []string{
	"rm", "rmdir", "dd", "mkfs", "fdisk", "mount", "umount",
	"sudo", "su", "passwd", "chown", "chmod", "chgrp", "chroot",
	"nc", "netcat", "wget", "curl", "ssh", "scp", "rsync",
	"kill", "killall", "pkill", "nohup", "screen", "tmux",
	"systemctl", "service", "crontab", "at", "reboot", "shutdown", "halt", "poweroff",
}

var shellBuiltins = map[string]struct{}{
	"true": {}, "false": {}, "test": {}, "[": {}, "echo": {}, "printf": {},
	"cd": {}, "pwd": {}, "export": {}, "set": {}, "unset": {},
	"alias": {}, "history": {}, "jobs": {}, "fg": {}, "bg": {}, "wait": {}, "read": {},
}

var dangerousFileNeedles = []string{
	".ssh", ".gnupg", ".aws", ".docker", "id_rsa", "id_ed25519",
	"credentials", "config", ".env", ".secrets",
}

var skipDirectories = map[string]struct{}{
	"target": {}, "node_modules": {}, ".git": {}, ".cargo": {}, ".npm": {},
	".cache": {}, "build": {}, "dist": {}, "tmp": {}, "temp": {},
}

var dangerousEnvVars = map[string]struct{}{
	"LD_PRELOAD": {}, "LD_LIBRARY_PATH": {}, "DYLD_INSERT_LIBRARIES": {},
	"DYLD_LIBRARY_PATH": {}, "PATH": {}, "HOME": {}, "SHELL": {},
}
