package llm

// chunkWriter batches streamed model text into fixed-size chunks before
// handing them to the sink, so callback frequency stays bounded without
// adding perceptible latency. Chunks never split a rune.
type chunkWriter struct {
	size int
	buf  []rune
	emit func(string)
}

func newChunkWriter(size int, emit func(string)) *chunkWriter {
	if size <= 0 {
		size = 64
	}
	return &chunkWriter{size: size, emit: emit}
}

func (w *chunkWriter) Write(s string) {
	if w == nil || s == "" {
		return
	}
	w.buf = append(w.buf, []rune(s)...)
	for len(w.buf) >= w.size {
		w.send(string(w.buf[:w.size]))
		w.buf = w.buf[w.size:]
	}
}

// Flush emits any remainder shorter than one chunk.
func (w *chunkWriter) Flush() {
	if w == nil || len(w.buf) == 0 {
		return
	}
	w.send(string(w.buf))
	w.buf = w.buf[:0]
}

func (w *chunkWriter) send(chunk string) {
	if w.emit != nil {
		w.emit(chunk)
	}
}
