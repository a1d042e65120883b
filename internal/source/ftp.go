package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTP reads batch files from a vendor drop directory. Some meter fleets
// still deliver exports this way rather than writing to object storage.
type FTP struct {
	addr string
	user string
	pass string
	dir  string
}

func NewFTP(addr, user, pass, dir string) *FTP {
	if user == "" {
		user = "anonymous"
		pass = "anonymous"
	}
	return &FTP{addr: addr, user: user, pass: pass, dir: dir}
}

func (f *FTP) Name() string { return "ftp" }

func (f *FTP) List(ctx context.Context, prefix string) ([]string, error) {
	conn, err := f.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	entries, err := conn.List(f.dir)
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", f.dir, err)
	}

	var keys []string
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		key := path.Join(f.dir, e.Name)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *FTP) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := f.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(key)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", key, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

func (f *FTP) dial() (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(f.addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	if err := conn.Login(f.user, f.pass); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return conn, nil
}
