package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/coe-protocol/coe-go/pkg/dictfile"
	"github.com/coe-protocol/coe-go/pkg/inspect"
	"github.com/coe-protocol/coe-go/pkg/od"
	"github.com/coe-protocol/coe-go/pkg/stream"
)

// shell drives the interactive session.
type shell struct {
	dict      *dictfile.Dictionary
	cfg       dictfile.LoadConfig
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rl        *readline.Instance
}

func newShell(dict *dictfile.Dictionary, cfg dictfile.LoadConfig) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "od> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &shell{
		dict:      dict,
		cfg:       cfg,
		inspector: inspect.NewInspector(dict, nil),
		formatter: inspect.NewFormatter(),
		rl:        rl,
	}, nil
}

func (s *shell) Close() error { return s.rl.Close() }

func (s *shell) out() io.Writer { return s.rl.Stdout() }

// Run processes commands until exit or EOF.
func (s *shell) Run() {
	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()
		case "load":
			s.cmdLoad(args)
		case "ls":
			s.cmdList()
		case "show", "s":
			s.cmdShow(args)
		case "read", "r":
			s.cmdRead(args)
		case "write", "w":
			s.cmdWrite(args)
		case "dump", "d":
			s.cmdDump(args)
		case "quit", "exit", "q":
			fmt.Fprintln(s.out(), "Exiting...")
			return
		default:
			fmt.Fprintf(s.out(), "unknown command %q, try help\n", cmd)
		}
	}
}

func (s *shell) printHelp() {
	fmt.Fprint(s.out(), `Commands:
  load <file.yaml>            replace the dictionary from a description file
  ls                          list objects
  show <index>                show one object with all subindices
  read <index> <si>           read one subindex
  write <index> <si> <value>  write one subindex
  dump <index>                complete read as hexdump
  help                        this text
  exit                        leave the shell
Indices and subindices accept decimal or 0x-prefixed hex.
`)
}

func (s *shell) cmdLoad(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out(), "usage: load <file.yaml>")
		return
	}
	dict, err := dictfile.LoadFile(args[0], s.cfg)
	if err != nil {
		fmt.Fprintf(s.out(), "load failed: %v\n", err)
		return
	}
	s.dict = dict
	s.inspector = inspect.NewInspector(dict, nil)
	fmt.Fprintf(s.out(), "loaded %d objects from %s\n", dict.Len(), args[0])
}

func (s *shell) cmdList() {
	_ = s.dict.Each(func(e od.Entry) error {
		fmt.Fprintf(s.out(), "0x%04X  %-28s %d subindices\n", e.Index(), e.Name(), e.NumSubindices())
		return nil
	})
}

func (s *shell) cmdShow(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out(), "usage: show <index>")
		return
	}
	idx, err := parseIndex(args[0])
	if err != nil {
		fmt.Fprintln(s.out(), err)
		return
	}
	text, err := s.inspector.RenderIndex(idx)
	if err != nil {
		fmt.Fprintln(s.out(), err)
		return
	}
	fmt.Fprint(s.out(), text)
}

func (s *shell) lookupArgs(args []string) (od.Entry, uint8, bool) {
	idx, err := parseIndex(args[0])
	if err != nil {
		fmt.Fprintln(s.out(), err)
		return nil, 0, false
	}
	si64, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 0, 8)
	if err != nil {
		fmt.Fprintf(s.out(), "invalid subindex %q\n", args[1])
		return nil, 0, false
	}
	e, ok := s.dict.Lookup(idx)
	if !ok {
		fmt.Fprintf(s.out(), "no object at 0x%04X\n", idx)
		return nil, 0, false
	}
	return e, uint8(si64), true
}

func (s *shell) cmdRead(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out(), "usage: read <index> <si>")
		return
	}
	e, si, ok := s.lookupArgs(args)
	if !ok {
		return
	}
	fmt.Fprintf(s.out(), "%s:%02X = %s\n", e.Name(), si, s.inspector.RenderValue(e, si))
}

func (s *shell) cmdWrite(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(s.out(), "usage: write <index> <si> <value>")
		return
	}
	e, si, ok := s.lookupArgs(args[:2])
	if !ok {
		return
	}

	buf, skip, err := encodeCandidate(e, si, args[2])
	if err != nil {
		fmt.Fprintf(s.out(), "encode failed: %v\n", err)
		return
	}
	r := stream.NewReader(buf, stream.LittleEndian)
	if skip > 0 {
		if err := r.Skip(skip); err != nil {
			fmt.Fprintf(s.out(), "encode failed: %v\n", err)
			return
		}
	}

	e.LockData().Lock()
	abort, err := e.Write(si, od.AccessWrite, r)
	e.LockData().Unlock()
	switch {
	case err != nil:
		fmt.Fprintf(s.out(), "write failed: %v\n", err)
	case abort != od.AbortNone:
		fmt.Fprintf(s.out(), "write aborted: %s\n", abort)
	default:
		fmt.Fprintf(s.out(), "%s:%02X = %s\n", e.Name(), si, s.inspector.RenderValue(e, si))
	}
}

func (s *shell) cmdDump(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out(), "usage: dump <index>")
		return
	}
	idx, err := parseIndex(args[0])
	if err != nil {
		fmt.Fprintln(s.out(), err)
		return
	}
	e, ok := s.dict.Lookup(idx)
	if !ok {
		fmt.Fprintf(s.out(), "no object at 0x%04X\n", idx)
		return
	}

	bits := 0
	for si := 0; si < e.NumSubindices(); si++ {
		bits += e.SubindexBitSize(uint8(si))
	}
	buf := make([]byte, (bits+7)/8)
	w := stream.NewWriter(buf, stream.LittleEndian)

	e.LockData().Lock()
	abort, err := e.CompleteRead(true, false, od.AccessRead, w)
	e.LockData().Unlock()
	switch {
	case err != nil:
		fmt.Fprintf(s.out(), "dump failed: %v\n", err)
		return
	case abort == od.AbortUnsupportedAccess:
		fmt.Fprintln(s.out(), "object does not support complete access")
		return
	case abort != od.AbortNone:
		fmt.Fprintf(s.out(), "dump aborted: %s\n", abort)
		return
	}
	if err := w.Close(); err != nil {
		fmt.Fprintf(s.out(), "dump failed: %v\n", err)
		return
	}

	written := (w.BitsWritten() + 7) / 8
	for off := 0; off < written; off += 16 {
		end := off + 16
		if end > written {
			end = written
		}
		fmt.Fprintf(s.out(), "%04X  % X\n", off, buf[off:end])
	}
}

func parseIndex(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if strings.HasPrefix(s, "0x") && err == nil {
		return uint16(v), nil
	}
	// Without a prefix try decimal first, then hex for convenience.
	if d, derr := strconv.ParseUint(s, 10, 16); derr == nil {
		return uint16(d), nil
	}
	if err == nil {
		return uint16(v), nil
	}
	return 0, fmt.Errorf("invalid index %q", s)
}

// encodeCandidate renders value into a buffer whose tail holds exactly the
// subindex width, plus the number of leading pad bits to skip.
func encodeCandidate(e od.Entry, si uint8, value string) ([]byte, int, error) {
	t := e.DataType(si)
	bits := e.SubindexBitSize(si)
	if bits == 0 {
		return nil, 0, fmt.Errorf("subindex %d has no width", si)
	}
	buf := make([]byte, (bits+7)/8)
	pad := len(buf)*8 - bits
	w := stream.NewWriter(buf, stream.LittleEndian)
	if pad > 0 {
		if err := w.WriteBits(0, uint8(pad)); err != nil {
			return nil, 0, err
		}
	}

	switch t {
	case od.TypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, 0, err
		}
		if bits == 1 {
			err = w.WriteBit(b)
		} else {
			err = w.WriteBool(b)
		}
		if err != nil {
			return nil, 0, err
		}
	case od.TypeInteger8, od.TypeInteger16, od.TypeInteger32, od.TypeInteger64:
		n, err := strconv.ParseInt(value, 0, t.NativeByteSize()*8)
		if err != nil {
			return nil, 0, err
		}
		for i := 0; i < t.NativeByteSize(); i++ {
			if err := w.WriteUint8(uint8(n >> (8 * i))); err != nil {
				return nil, 0, err
			}
		}
	case od.TypeUnsigned8, od.TypeUnsigned16, od.TypeUnsigned32, od.TypeUnsigned64:
		n, err := strconv.ParseUint(value, 0, t.NativeByteSize()*8)
		if err != nil {
			return nil, 0, err
		}
		for i := 0; i < t.NativeByteSize(); i++ {
			if err := w.WriteUint8(uint8(n >> (8 * i))); err != nil {
				return nil, 0, err
			}
		}
	case od.TypeReal32:
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, 0, err
		}
		if err := w.WriteFloat32(float32(f)); err != nil {
			return nil, 0, err
		}
	case od.TypeReal64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, 0, err
		}
		if err := w.WriteFloat64(f); err != nil {
			return nil, 0, err
		}
	case od.TypeVisibleString, od.TypeOctetString:
		// The protocol write expects the full buffer width; pad with NULs.
		padded := make([]byte, bits/8)
		if len(value) > len(padded) {
			return nil, 0, fmt.Errorf("value exceeds %d bytes", len(padded))
		}
		copy(padded, value)
		if err := w.WriteBytes(padded); err != nil {
			return nil, 0, err
		}
	default:
		if t.IsBitField() {
			n, err := strconv.ParseUint(value, 0, bits)
			if err != nil {
				return nil, 0, err
			}
			if err := w.WriteBits(byte(n), uint8(bits)); err != nil {
				return nil, 0, err
			}
			break
		}
		return nil, 0, fmt.Errorf("cannot encode type %s", t)
	}
	if err := w.Close(); err != nil {
		return nil, 0, err
	}
	return buf, pad, nil
}
