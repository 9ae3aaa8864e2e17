package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kjk/seqstore"
	"github.com/kjk/seqstore/backup"
	"github.com/kjk/seqstore/log"
	"github.com/kjk/seqstore/remote"
	"github.com/kjk/seqstore/server"
	"github.com/tidwall/pretty"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	return nil
}

// openForAppend creates the store if it doesn't exist yet
func (a *app) openForAppend() (*seqstore.Store, error) {
	opts := a.options()
	if seqstore.Exists(a.conf.Dir, opts) {
		return seqstore.OpenForAppend(a.conf.Dir, opts)
	}
	log.Verbosef("creating a new store in '%s'\n", a.conf.Dir)
	return seqstore.CreateForWrite(a.conf.Dir, opts)
}

func cmdAppend(a *app, args []string) (err error) {
	fs := newFlagSet("append")
	if err = parseFlags(fs, args); err != nil {
		return err
	}
	s, err := a.openForAppend()
	if err != nil {
		return err
	}
	defer func() {
		if errClose := s.Close(); err == nil {
			err = errClose
		}
	}()

	timeStart := time.Now()
	n := 0
	files := fs.Args()
	if len(files) > 0 {
		for _, path := range files {
			d, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err = s.Append(d); err != nil {
				return err
			}
			n++
		}
	} else {
		sc := bufio.NewScanner(a.stdin)
		sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
		for sc.Scan() {
			if err = s.Append(sc.Bytes()); err != nil {
				return err
			}
			n++
		}
		if err = sc.Err(); err != nil {
			return err
		}
	}
	count, err := s.Count()
	if err != nil {
		return err
	}
	log.EventWithDuration("append", time.Since(timeStart), "records", n, "total", count)
	a.printf("appended %d records, %d total, data size: %s\n", n, count, formatSize(s.WriteOffset()))
	return nil
}

func (a *app) openForRead() (*seqstore.Store, error) {
	return seqstore.OpenForRead(a.conf.Dir, a.options())
}

func cmdRead(a *app, args []string) error {
	fs := newFlagSet("read")
	flgSeq := fs.String("n", "", "sequence number of the record")
	flgOut := fs.String("o", "", "write the payload to this file instead of stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *flgSeq == "" {
		return fmt.Errorf("read: must provide -n")
	}
	seq, err := strconv.ParseUint(*flgSeq, 10, 64)
	if err != nil {
		return fmt.Errorf("read: invalid sequence number '%s'", *flgSeq)
	}
	s, err := a.openForRead()
	if err != nil {
		return err
	}
	defer s.Close()
	count, err := s.Count()
	if err != nil {
		return err
	}
	if seq >= count {
		return fmt.Errorf("read: no record %d, the store has %d records", seq, count)
	}
	d, err := s.Read(seq)
	if err != nil {
		return err
	}
	if *flgOut != "" {
		return os.WriteFile(*flgOut, d, 0644)
	}
	_, err = a.stdout.Write(d)
	return err
}

func cmdCount(a *app, args []string) error {
	if err := parseFlags(newFlagSet("count"), args); err != nil {
		return err
	}
	s, err := a.openForRead()
	if err != nil {
		return err
	}
	defer s.Close()
	n, err := s.Count()
	if err != nil {
		return err
	}
	a.printf("%d\n", n)
	return nil
}

func cmdCheck(a *app, args []string) error {
	if err := parseFlags(newFlagSet("check"), args); err != nil {
		return err
	}
	s, err := a.openForRead()
	if err != nil {
		return err
	}
	defer s.Close()
	res, err := s.Check()
	if err != nil {
		return err
	}
	a.printf("ok: %d records, data size: %s\n", res.Records, formatSize(res.DataSize))
	if res.UnindexedBytes > 0 {
		a.printf("warning: %d bytes at the end of data file are not referenced by the index\n", res.UnindexedBytes)
	}
	return nil
}

// Stats is printed by stats command
type Stats struct {
	Dir            string  `json:"dir"`
	Records        uint64  `json:"records"`
	IndexSize      uint64  `json:"index_size"`
	DataSize       uint64  `json:"data_size"`
	DataSizeHuman  string  `json:"data_size_human"`
	UnindexedBytes uint64  `json:"unindexed_bytes"`
	AvgRecordSize  float64 `json:"avg_record_size"`
	MaxRecordSize  uint64  `json:"max_record_size"`
}

func calcStats(s *seqstore.Store) (*Stats, error) {
	res, err := s.Check()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Records:        res.Records,
		IndexSize:      res.Records * seqstore.EntrySize,
		DataSize:       res.DataSize,
		DataSizeHuman:  formatSize(res.DataSize),
		UnindexedBytes: res.UnindexedBytes,
	}
	for i := uint64(0); i < res.Records; i++ {
		e, err := s.Entry(i)
		if err != nil {
			return nil, err
		}
		st.MaxRecordSize = max(st.MaxRecordSize, e.Length)
	}
	if res.Records > 0 {
		st.AvgRecordSize = float64(res.DataSize-res.UnindexedBytes) / float64(res.Records)
	}
	return st, nil
}

func cmdStats(a *app, args []string) error {
	if err := parseFlags(newFlagSet("stats"), args); err != nil {
		return err
	}
	s, err := a.openForRead()
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := calcStats(s)
	if err != nil {
		return err
	}
	st.Dir = a.conf.Dir
	d, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(pretty.Pretty(d))
	return err
}

// withExt adds compression extension to name if it doesn't have one
func (a *app) withExt(name string) string {
	if backup.CompressionFromPath(name) != backup.None {
		return name
	}
	return name + a.conf.Compression().Ext()
}

func cmdExport(a *app, args []string) error {
	fs := newFlagSet("export")
	flgOut := fs.String("o", "", "path of the dump file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *flgOut == "" {
		return fmt.Errorf("export: must provide -o")
	}
	s, err := a.openForRead()
	if err != nil {
		return err
	}
	defer s.Close()
	path := a.withExt(*flgOut)
	n, err := backup.ExportFile(s, path)
	if err != nil {
		return err
	}
	a.printf("exported %d records to '%s' (%s)\n", n, path, formatSize(fileSize(path)))
	return nil
}

func cmdImport(a *app, args []string) error {
	fs := newFlagSet("import")
	flgIn := fs.String("i", "", "path of the dump file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *flgIn == "" {
		return fmt.Errorf("import: must provide -i")
	}
	if seqstore.Exists(a.conf.Dir, a.options()) {
		return fmt.Errorf("import: store in '%s' already exists", a.conf.Dir)
	}
	n, err := backup.ImportFile(*flgIn, a.conf.Dir, a.options())
	if err != nil {
		return err
	}
	a.printf("imported %d records to '%s'\n", n, a.conf.Dir)
	return nil
}

func (a *app) openRemote(kind string) (remote.Storage, error) {
	switch kind {
	case "s3":
		c := a.conf.S3Config()
		if c == nil {
			return nil, errors.New("missing backup.s3 section in config")
		}
		ctx, cancel := ctxWithSignals()
		defer cancel()
		return remote.NewS3(ctx, c)
	case "sftp":
		c := a.conf.SFTPConfig()
		if c == nil {
			return nil, errors.New("missing backup.sftp section in config")
		}
		return remote.NewSFTP(c)
	}
	return nil, fmt.Errorf("unknown remote '%s', must be s3 or sftp", kind)
}

func cmdPush(a *app, args []string) error {
	fs := newFlagSet("push")
	flgTo := fs.String("to", "s3", "s3 or sftp")
	flgName := fs.String("name", "", "name of the backup file on the remote")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	name := *flgName
	if name == "" {
		name = filepath.Base(filepath.Clean(a.conf.Dir)) + "-" + time.Now().UTC().Format("2006-01-02_15_04_05") + ".txt"
	}
	name = a.withExt(name)
	s, err := a.openForRead()
	if err != nil {
		return err
	}
	defer s.Close()
	rs, err := a.openRemote(*flgTo)
	if err != nil {
		return err
	}
	defer rs.Close()

	ctx, cancel := ctxWithSignals()
	defer cancel()
	n, err := backup.Push(ctx, rs, s, name, a.conf.TmpDir())
	if err != nil {
		return err
	}
	a.printf("pushed %d records to %s '%s'\n", n, *flgTo, name)
	return nil
}

func cmdPull(a *app, args []string) error {
	fs := newFlagSet("pull")
	flgFrom := fs.String("from", "s3", "s3 or sftp")
	flgName := fs.String("name", "", "name of the backup file on the remote")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *flgName == "" {
		return fmt.Errorf("pull: must provide -name")
	}
	if seqstore.Exists(a.conf.Dir, a.options()) {
		return fmt.Errorf("pull: store in '%s' already exists", a.conf.Dir)
	}
	rs, err := a.openRemote(*flgFrom)
	if err != nil {
		return err
	}
	defer rs.Close()

	ctx, cancel := ctxWithSignals()
	defer cancel()
	n, err := backup.Pull(ctx, rs, *flgName, a.conf.Dir, a.conf.TmpDir(), a.options())
	if err != nil {
		return err
	}
	a.printf("pulled %d records from %s '%s' to '%s'\n", n, *flgFrom, *flgName, a.conf.Dir)
	return nil
}

func cmdServe(a *app, args []string) error {
	fs := newFlagSet("serve")
	flgAddr := fs.String("addr", a.conf.Server.Addr, "address to listen on")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	s, err := a.openForRead()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := ctxWithSignals()
	defer cancel()
	return server.New(s).Run(ctx, *flgAddr)
}
