// od-shell is an interactive browser over a CoE object dictionary.
//
// It loads a YAML dictionary description (or falls back to a built-in demo
// dictionary) and offers read/write/dump access through the same stream
// codec the protocol uses.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/coe-protocol/coe-go/pkg/dictfile"
	"github.com/coe-protocol/coe-go/pkg/log"
)

func main() {
	dictPath := flag.String("dict", "", "YAML dictionary description to load")
	logPath := flag.String("log", "", "record access events to this CBOR file")
	flag.Parse()

	var logger log.Logger = log.NoopLogger{}
	if *logPath != "" {
		fl, err := log.NewFileLogger(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "od-shell: %v\n", err)
			os.Exit(1)
		}
		defer fl.Close()
		logger = log.NewRecorder(fl)
	}

	cfg := dictfile.LoadConfig{Logger: logger}
	var dict *dictfile.Dictionary
	var err error
	if *dictPath != "" {
		dict, err = dictfile.LoadFile(*dictPath, cfg)
	} else {
		dict, err = dictfile.Parse([]byte(demoDictionary), cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "od-shell: %v\n", err)
		os.Exit(1)
	}

	sh, err := newShell(dict, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "od-shell: %v\n", err)
		os.Exit(1)
	}
	defer sh.Close()
	sh.Run()
}

// demoDictionary is served when no description file is given.
const demoDictionary = `
device:
  name: demo-drive
  vendor: example

objects:
  - index: 0x1000
    name: Device type
    kind: variable
    type: unsigned32
    access: ro
    value: 0x00020192

  - index: 0x1008
    name: Device name
    kind: variable
    type: visible_string
    access: ro
    nelements: 16
    value: demo-drive

  - index: 0x2000
    name: Velocity setpoint
    kind: variable
    type: integer32
    access: rw
    value: 0

  - index: 0x3000
    name: Current limits
    kind: array
    type: unsigned16
    access: rw
    si0_access: ro
    min: 1
    max: 4
    values: [1500, 3000]

  - index: 0x6040
    name: Control
    kind: record
    size: 4
    subindices:
      - {name: Enable, type: bit1, access: rw, byte: 0, bit: 0}
      - {name: Mode, type: bit3, access: rw, byte: 0, bit: 1}
      - {name: Reserved, gap: 4}
      - {name: Target, type: unsigned16, access: rw, byte: 1, value: 0}
      - {empty: true}
      - {name: Flags, type: bit8, access: ro, byte: 3}
`
