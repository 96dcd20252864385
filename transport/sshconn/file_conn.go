package sshconn

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"

	"connpool/pool"
)

// FileConn is a Conn that additionally carries an SFTP client multiplexed
// over the same SSH session, grounded on internal/tunnel/client.go's
// ensureSFTP/Upload/Download. It implements pool.Connection by embedding
// *Conn, so a pool.Engine[pool.DefaultKey, *FileConn] reuses every one of
// Conn's lifecycle semantics unchanged.
type FileConn struct {
	*Conn
	sftp *sftp.Client
}

func newFileConn(conn *Conn) (*FileConn, error) {
	client, err := sftp.NewClient(conn.client)
	if err != nil {
		return nil, fmt.Errorf("sshconn: starting sftp subsystem: %w", err)
	}
	return &FileConn{Conn: conn, sftp: client}, nil
}

// Close implements pool.Connection, closing the SFTP client before the
// underlying SSH transport.
func (fc *FileConn) Close() error {
	fc.sftp.Close()
	return fc.Conn.Close()
}

// Upload copies localPath to remotePath over SFTP, creating the remote
// parent directory if it does not already exist. Trimmed from
// internal/tunnel/client.go's Upload: no progress callback or checksum
// verification, since those belong in a higher-level transfer package this
// module does not implement (no transfer-orchestration component appears in
// this spec's scope).
func (fc *FileConn) Upload(localPath, remotePath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sshconn: opening local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	remoteFile, err := fc.sftp.Create(remotePath)
	if err != nil {
		if mkErr := fc.sftp.MkdirAll(filepath.Dir(remotePath)); mkErr != nil {
			return fmt.Errorf("sshconn: creating remote directory for %s: %w", remotePath, mkErr)
		}
		remoteFile, err = fc.sftp.Create(remotePath)
		if err != nil {
			return fmt.Errorf("sshconn: creating remote file %s: %w", remotePath, err)
		}
	}
	defer remoteFile.Close()

	if _, err := io.Copy(remoteFile, localFile); err != nil {
		return fmt.Errorf("sshconn: uploading to %s: %w", remotePath, err)
	}
	return nil
}

// Download copies remotePath to localPath over SFTP.
func (fc *FileConn) Download(remotePath, localPath string) error {
	remoteFile, err := fc.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("sshconn: opening remote file %s: %w", remotePath, err)
	}
	defer remoteFile.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("sshconn: creating local directory for %s: %w", localPath, err)
	}

	localFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("sshconn: creating local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	if _, err := io.Copy(localFile, remoteFile); err != nil {
		return fmt.Errorf("sshconn: downloading %s: %w", remotePath, err)
	}
	return nil
}

// FileFactory is a pool.ConnectionFactory[pool.DefaultKey, *FileConn] that
// dials an SSH connection via an embedded Factory and layers an SFTP client
// on top of it.
type FileFactory struct {
	inner *Factory
}

// NewFileFactory builds a FileFactory with the same options Factory accepts.
func NewFileFactory(opts ...Option) (*FileFactory, error) {
	inner, err := NewFactory(opts...)
	if err != nil {
		return nil, err
	}
	return &FileFactory{inner: inner}, nil
}

// Create implements pool.ConnectionFactory.
func (ff *FileFactory) Create(ctx context.Context, key pool.DefaultKey) (*FileConn, error) {
	conn, err := ff.inner.Create(ctx, key)
	if err != nil {
		return nil, err
	}

	fc, err := newFileConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return fc, nil
}

// FileHealthCheck is a pool.HealthChecker for *FileConn, verifying both the
// SSH transport (via HealthCheck) and that the SFTP subsystem is still
// responsive.
var FileHealthCheck = pool.HealthCheckerFunc[pool.DefaultKey, *FileConn](func(ctx context.Context, conn *FileConn, key pool.DefaultKey) bool {
	if !HealthCheck.IsHealthy(ctx, conn.Conn, key) {
		return false
	}
	_, err := conn.sftp.Getwd()
	return err == nil
})
