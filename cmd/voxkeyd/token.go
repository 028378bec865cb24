// cmd/voxkeyd/token.go
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
)

type tokenSnapshot struct {
	Path  string
	Token string
}

var tokenCache atomic.Value // stores tokenSnapshot

// initTokenFile creates the control token file if missing and enforces 0600
// on Unix. The front end reads this file to authenticate its requests.
func initTokenFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		if runtime.GOOS != "windows" {
			return ensureFileMode0600(path)
		}
		return nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("rand: %w", err)
	}
	token := hex.EncodeToString(b)

	perm := os.FileMode(0600)
	if runtime.GOOS == "windows" {
		perm = 0644 // Windows ACLs differ; keep it readable to the user.
	}
	if err := os.WriteFile(path, []byte(token+"\n"), perm); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	// Re-check perms on Unix to catch umask surprises.
	if runtime.GOOS != "windows" {
		return ensureFileMode0600(path)
	}
	return nil
}

func readTokenFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", errors.New("empty token")
	}
	return tok, nil
}

func cachedToken() (string, error) {
	if v := tokenCache.Load(); v != nil {
		if snap, ok := v.(tokenSnapshot); ok {
			if snap.Path == cfg.TokenFile && snap.Token != "" {
				return snap.Token, nil
			}
		}
	}

	tok, err := readTokenFile(cfg.TokenFile)
	if err != nil {
		return "", err
	}
	tokenCache.Store(tokenSnapshot{Path: cfg.TokenFile, Token: tok})
	addSecret(tok)
	return tok, nil
}

func ensureFileMode0600(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := fi.Mode().Perm(); mode&0077 != 0 {
		return fmt.Errorf("token file has insecure permissions (must be 0600 or stricter): %s (got %04o)", path, mode)
	}
	return nil
}

func isLoopbackListenAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return false
	}
	for _, x := range ips {
		if !x.IsLoopback() {
			return false
		}
	}
	return true
}
