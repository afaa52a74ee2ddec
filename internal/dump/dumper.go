// Package dump produces the encrypted logical dump stream consumed by the
// backup pipeline. It shells out to mysqldump, optionally compresses the
// output, and encrypts it with AES-256-CTR under a per-attempt key that is
// handed to the caller only in public-key-wrapped form.
package dump

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/francishero/agent/internal/backup"
	"github.com/francishero/agent/internal/logging"
)

// ivSize matches the AES block size; one fresh IV per attempt
const ivSize = 16

// MySQLDumper implements backup.Dumper for MySQL and MariaDB servers
type MySQLDumper struct {
	config *backup.JobConfig
	logger *logging.Logger

	binaryPath string
	key        []byte
}

// NewMySQLDumper creates a new MySQLDumper instance
func NewMySQLDumper(config *backup.JobConfig, logger *logging.Logger) *MySQLDumper {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &MySQLDumper{
		config: config,
		logger: logger,
	}
}

// Check verifies the dump tool is installed and the database is reachable
func (d *MySQLDumper) Check(ctx context.Context) error {
	path, err := lookupBinary()
	if err != nil {
		return err
	}
	d.binaryPath = path
	d.logger.WithField("path", path).Debug("Found dump binary")

	return Preflight(ctx, d.config.Database)
}

// PrepareKeys generates the symmetric key for this attempt and returns it
// wrapped under the job's public key. The plaintext key stays inside the
// dumper.
func (d *MySQLDumper) PrepareKeys(ctx context.Context) ([]byte, error) {
	pub, err := ParsePublicKey(d.config.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	var key []byte
	if d.config.KeyPassphrase != "" {
		key, err = deriveKey(d.config.KeyPassphrase)
	} else {
		key, err = generateKey()
	}
	if err != nil {
		return nil, err
	}

	wrapped, err := wrapKey(pub, key)
	if err != nil {
		return nil, err
	}

	d.key = key
	return wrapped, nil
}

// Dump starts mysqldump and returns the live ciphertext stream together with
// the IV chosen for this attempt. The stream carries compressed-then-encrypted
// dump bytes; any dump or compression failure surfaces as the stream's read
// error.
func (d *MySQLDumper) Dump(ctx context.Context) (io.ReadCloser, []byte, error) {
	if d.key == nil {
		return nil, nil, backup.NewKeyGenerationError("symmetric key has not been prepared", nil)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, backup.NewKeyGenerationError("failed to generate IV", err)
	}

	block, err := aes.NewCipher(d.key)
	if err != nil {
		return nil, nil, backup.NewKeyGenerationError("failed to initialize cipher", err)
	}
	stream := cipher.NewCTR(block, iv)

	cmd := exec.CommandContext(ctx, d.binaryPath, d.dumpArgs()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, backup.NewUnexpectedError("failed to open dump output pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, backup.NewPreconditionError("failed to start dump process", err)
	}

	d.logger.WithFields(map[string]interface{}{
		"database":    d.config.Database.Database,
		"compression": d.config.Compression,
	}).Debug("Dump process started")

	pr, pw := io.Pipe()
	go func() {
		encWriter := cipher.StreamWriter{S: stream, W: pw}
		cw, err := newCompressingWriter(encWriter, d.config.Compression)
		if err != nil {
			cmd.Process.Kill()
			cmd.Wait()
			pw.CloseWithError(err)
			return
		}

		_, copyErr := io.Copy(cw, stdout)
		closeErr := cw.Close()
		waitErr := cmd.Wait()

		switch {
		case waitErr != nil:
			pw.CloseWithError(backup.NewPreconditionError(
				fmt.Sprintf("dump process failed: %s", firstLine(stderr.String())), waitErr))
		case copyErr != nil:
			pw.CloseWithError(backup.NewUnexpectedError("failed to read dump output", copyErr))
		case closeErr != nil:
			pw.CloseWithError(backup.NewUnexpectedError("failed to flush compressed stream", closeErr))
		default:
			pw.Close()
		}
	}()

	return pr, iv, nil
}

// dumpArgs builds the mysqldump invocation for the configured database
func (d *MySQLDumper) dumpArgs() []string {
	cfg := d.config.Database
	args := []string{
		"--host=" + cfg.Host,
		"--port=" + strconv.Itoa(cfg.Port),
		"--user=" + cfg.Username,
		"--single-transaction",
		"--routines",
		"--triggers",
	}
	if cfg.Password != "" {
		args = append(args, "--password="+cfg.Password)
	}
	return append(args, cfg.Database)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
