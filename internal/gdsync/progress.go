package gdsync

import "io"

// ProgressObserver receives byte counts while a file is transferred. It is a
// side channel only: it never influences control flow or the index.
type ProgressObserver interface {
	// Progress is called with a monotonically increasing transferred count.
	// total is -1 when the size is not known up front.
	Progress(name string, transferred, total int64)
}

// NopObserver discards progress notifications.
type NopObserver struct{}

func (NopObserver) Progress(string, int64, int64) {}

// progressReader counts bytes read through it and reports them.
type progressReader struct {
	r        io.Reader
	name     string
	total    int64
	read     int64
	observer ProgressObserver
}

func newProgressReader(r io.Reader, name string, total int64, observer ProgressObserver) *progressReader {
	return &progressReader{r: r, name: name, total: total, observer: observer}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.observer.Progress(p.name, p.read, p.total)
	}
	return n, err
}

// progressWriter counts bytes written through it and reports them.
type progressWriter struct {
	w        io.Writer
	name     string
	total    int64
	written  int64
	observer ProgressObserver
}

func newProgressWriter(w io.Writer, name string, total int64, observer ProgressObserver) *progressWriter {
	return &progressWriter{w: w, name: name, total: total, observer: observer}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.written += int64(n)
		p.observer.Progress(p.name, p.written, p.total)
	}
	return n, err
}
