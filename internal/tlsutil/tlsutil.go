// ABOUTME: TLS key pair bootstrap for the keyward services
// ABOUTME: Generates a self-signed pair via the external openssl tool when absent

package tlsutil

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// EnsureKeyPair makes sure a certificate/key pair exists at the given
// paths. When both files are present it does nothing. Otherwise it invokes
// the openssl command-line tool to generate a 2048-bit key and a one-year
// self-signed certificate for commonName, the same bootstrap the services
// have always used. Serving only requires that the pair exists; how it got
// there is not this package's concern.
func EnsureKeyPair(certPath, keyPath, commonName string, logger *slog.Logger) error {
	if fileExists(certPath) && fileExists(keyPath) {
		return nil
	}

	logger.Info("generating self-signed certificate",
		"cert", certPath,
		"key", keyPath,
		"common_name", commonName,
	)

	keyGen := exec.Command("openssl", "genrsa", "-out", keyPath, "2048")
	if out, err := keyGen.CombinedOutput(); err != nil {
		return fmt.Errorf("generating private key: %w: %s", err, out)
	}

	certGen := exec.Command("openssl", "req", "-new", "-x509",
		"-key", keyPath,
		"-out", certPath,
		"-days", "365",
		"-subj", "/CN="+commonName,
	)
	if out, err := certGen.CombinedOutput(); err != nil {
		return fmt.Errorf("generating certificate: %w: %s", err, out)
	}

	logger.Info("generated self-signed certificate", "cert", certPath, "key", keyPath)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
