// Package main generates a development Certificate Authority (CA) and a
// server certificate signed by it, for serving the API over HTTPS.
//
// Usage:
//
//	go run ./tools/certgen -out certs -hosts localhost,127.0.0.1
//
// The server is then started with -tls-cert certs/server.crt -tls-key
// certs/server.key and the client with --ca certs/ca.crt.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/HorosCase/internal/certgen"
)

func main() {
	dir := flag.String("out", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ",")); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// run writes ca.crt, ca.key, server.crt and server.key into dir. An
// existing CA in dir is reused so previously trusted clients keep working.
func run(dir string, hosts []string) error {
	var clean []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			clean = append(clean, h)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	caCrt, caKey := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")
	if _, err := os.Stat(caCrt); os.IsNotExist(err) {
		certPEM, keyPEM, err := certgen.GenerateCA("HorosCase Dev CA")
		if err != nil {
			return err
		}
		if err := writePair(caCrt, caKey, certPEM, keyPEM); err != nil {
			return err
		}
	}

	ca, key, err := certgen.LoadCACredentials(caCrt, caKey)
	if err != nil {
		return err
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate(clean, ca, key)
	if err != nil {
		return err
	}
	return writePair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM)
}

// writePair writes a certificate (0644) and its private key (0600).
func writePair(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}
