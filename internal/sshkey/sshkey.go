// Package sshkey generates identity files for new SSH host entries.
package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/guse-cli/guse/internal/apperr"
	"golang.org/x/crypto/ssh"
)

// Pair is a key pair written to disk.
type Pair struct {
	PrivatePath string
	PublicPath  string
	// PublicKey is the authorized_keys line, comment included.
	PublicKey string
}

// DefaultKeyPath is where a generated key for alias goes.
func DefaultKeyPath(sshDir, alias string) string {
	return filepath.Join(sshDir, "id_"+alias)
}

// Marshal creates an ed25519 key pair and returns the authorized_keys line
// and the PEM private key, encrypted when passphrase is non-empty.
func Marshal(comment, passphrase string) (public string, private []byte, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	sshPub, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return "", nil, fmt.Errorf("create SSH public key: %w", err)
	}
	public = strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	if comment != "" {
		public += " " + comment
	}

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(privKey, comment)
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(privKey, comment, []byte(passphrase))
	}
	if err != nil {
		return "", nil, fmt.Errorf("marshal private key: %w", err)
	}
	return public, pem.EncodeToMemory(block), nil
}

// Generate writes a new key pair at privatePath and privatePath.pub. An
// existing file at either path is never overwritten.
func Generate(privatePath, comment, passphrase string) (Pair, error) {
	pair := Pair{PrivatePath: privatePath, PublicPath: privatePath + ".pub"}
	for _, p := range []string{pair.PrivatePath, pair.PublicPath} {
		if _, err := os.Stat(p); err == nil {
			return Pair{}, apperr.New(apperr.KindKeyGeneration, "key file %s already exists", p)
		}
	}

	public, private, err := Marshal(comment, passphrase)
	if err != nil {
		return Pair{}, apperr.Wrap(apperr.KindKeyGeneration, err, "cannot generate key")
	}
	pair.PublicKey = public

	if err := os.MkdirAll(filepath.Dir(privatePath), 0o700); err != nil {
		return Pair{}, apperr.Wrap(apperr.KindKeyGeneration, err, "cannot create %s", filepath.Dir(privatePath))
	}
	if err := writeNew(pair.PrivatePath, private, 0o600); err != nil {
		return Pair{}, apperr.Wrap(apperr.KindKeyGeneration, err, "cannot write %s", pair.PrivatePath)
	}
	if err := writeNew(pair.PublicPath, []byte(public+"\n"), 0o644); err != nil {
		_ = os.Remove(pair.PrivatePath)
		return Pair{}, apperr.Wrap(apperr.KindKeyGeneration, err, "cannot write %s", pair.PublicPath)
	}
	return pair, nil
}

func writeNew(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ListIdentityFiles returns the private keys in sshDir named id_*.
func ListIdentityFiles(sshDir string) ([]string, error) {
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, "id_") || strings.HasSuffix(name, ".pub") {
			continue
		}
		out = append(out, filepath.Join(sshDir, name))
	}
	sort.Strings(out)
	return out, nil
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// CopyPublicKey puts the public key line on the system clipboard.
func CopyPublicKey(pair Pair) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility available")
	}
	return writeClipboard(pair.PublicKey)
}
