package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/urfave/cli.v2"

	"gomos/cpu"
)

func main() {
	app := &cli.App{
		Name:  "gomos",
		Usage: "run 6502 program images",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "load an image at $0600 and run it to the first BRK",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "hex",
						Usage: "parse the image as whitespace-separated hex text",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "log every instruction to stderr",
					},
					&cli.BoolFlag{
						Name:  "clock",
						Usage: "throttle to NTSC speed instead of running flat out",
					},
				},
				Action: runImage,
			},
			{
				Name:  "debug",
				Usage: "load an image and single-step it in an interactive TUI",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "hex",
						Usage: "parse the image as whitespace-separated hex text",
					},
				},
				Action: debugImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadImage reads a program image: raw bytes by default, or text like
// "A9 05 00" with asText.
func loadImage(path string, asText bool) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !asText {
		return raw, nil
	}

	var image []byte
	for _, s := range strings.Fields(string(raw)) {
		b, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad hex byte %q: %v", s, err)
		}
		image = append(image, byte(b))
	}
	return image, nil
}

func runImage(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return cli.Exit("usage: gomos run [options] <image>", 1)
	}
	image, err := loadImage(path, ctx.Bool("hex"))
	if err != nil {
		return err
	}

	c := cpu.New()
	c.Load(image)
	c.Reset()

	var hooks []func(*cpu.Cpu)
	if ctx.Bool("trace") {
		hooks = append(hooks, trace(log.New(os.Stderr, "", 0)))
	}
	if ctx.Bool("clock") {
		hooks = append(hooks, throttle())
	}

	if err := c.RunWithCallback(func(c *cpu.Cpu) {
		for _, h := range hooks {
			h(c)
		}
	}); err != nil {
		return err
	}

	fmt.Printf("halted at %04X after %d cycles\n", c.ProgramCounter, c.Cycles)
	return nil
}

func debugImage(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return cli.Exit("usage: gomos debug [options] <image>", 1)
	}
	image, err := loadImage(path, ctx.Bool("hex"))
	if err != nil {
		return err
	}
	return cpu.New().Debug(image)
}

// trace logs one line per instruction, before it executes.
func trace(logger *log.Logger) func(*cpu.Cpu) {
	return func(c *cpu.Cpu) {
		b := c.Read(c.ProgramCounter)
		name := "???"
		if op, ok := cpu.Opcodes[b]; ok {
			name = op.Name
		}
		logger.Printf("%04X  %02X %s  A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d",
			c.ProgramCounter, b, name,
			c.Accumulator, c.X, c.Y, c.StatusByte(), c.Stack, c.Cycles)
	}
}

// throttle sleeps off the cycles of the previous instruction, approximating
// the NTSC clock. The core itself never sleeps.
func throttle() func(*cpu.Cpu) {
	var last uint64
	return func(c *cpu.Cpu) {
		time.Sleep(cpu.Tick * time.Duration(c.Cycles-last))
		last = c.Cycles
	}
}
