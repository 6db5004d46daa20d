// a2view renders an Apple II memory dump the way the video hardware would
// show it. The frame either goes to a PNG or to an SDL window.
package main

import (
	"flag"
	"image"
	"image/png"
	"io/ioutil"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/image/draw"

	"github.com/jmchacon/vidhw/a2video"
	"github.com/jmchacon/vidhw/memory"
)

var (
	ramPath = flag.String("ram", "", "Path to a memory dump. Main RAM is the first 64k, aux RAM (if any) the next 64k")
	charROM = flag.String("char_rom", "", "Path to a 2k character ROM. If unset text renders blank")
	outPNG  = flag.String("png", "", "If set write the frame to this PNG instead of opening a window")
	scale   = flag.Float64("scale", 2.0, "The amount to scale the output by")
	workers = flag.Int("workers", 0, "Number of hi-res render bands. 0 means one per CPU")

	text  = flag.Bool("text", false, "TEXT soft switch")
	mixed = flag.Bool("mixed", false, "MIXED soft switch")
	hires = flag.Bool("hires", false, "HIRES soft switch")
	col80 = flag.Bool("col80", false, "80COL soft switch")
	page2 = flag.Bool("page2", false, "PAGE2 soft switch")
	aux   = flag.Bool("aux", false, "Display from the aux bank")
)

var window *sdl.Window
var surface *sdl.Surface

func scaled(src image.Image) draw.Image {
	b := src.Bounds()
	d := image.NewNRGBA(image.Rect(0, 0, int(float64(b.Dx())**scale), int(float64(b.Dy())**scale)))
	draw.NearestNeighbor.Scale(d, d.Bounds(), src, b, draw.Over, nil)
	return d
}

func render() *image.Paletted {
	dump, err := ioutil.ReadFile(*ramPath)
	if err != nil {
		log.Fatalf("Can't load RAM dump: %v from path: %s", err, *ramPath)
	}
	if len(dump) > a2video.MinRAM {
		log.Fatalf("RAM dump is %d bytes, must be <= %d", len(dump), a2video.MinRAM)
	}
	ram, err := memory.NewRAM(a2video.MinRAM)
	if err != nil {
		log.Fatalf("Can't create RAM: %v", err)
	}
	copy(ram.Bytes(), dump)

	font := make([]uint8, 2048)
	if *charROM != "" {
		if font, err = ioutil.ReadFile(*charROM); err != nil {
			log.Fatalf("Can't load char ROM: %v from path: %s", err, *charROM)
		}
	}

	v, err := a2video.Init(&a2video.VideoDef{
		RAM:     ram,
		CharROM: font,
		Workers: *workers,
	})
	if err != nil {
		log.Fatalf("Can't init video: %v", err)
	}
	c := a2video.Control{
		Text:  *text,
		Mixed: *mixed,
		HiRes: *hires,
		Col80: *col80,
		Page2: *page2,
		RAMRD: *aux,
	}
	for _, b := range a2video.Bands(c) {
		log.Printf("lines %d-%d: %v", b.Begin, b.End, b.Mode)
	}
	f := a2video.NewFrame()
	v.Render(c, f, f.Bounds())
	return f
}

func main() {
	flag.Parse()
	if *ramPath == "" {
		log.Fatal("-ram must be set")
	}
	frame := render()

	if *outPNG != "" {
		o, err := os.Create(*outPNG)
		if err != nil {
			log.Fatalf("Can't create %s: %v", *outPNG, err)
		}
		if err := png.Encode(o, scaled(frame)); err != nil {
			log.Fatalf("Can't encode PNG: %v", err)
		}
		if err := o.Close(); err != nil {
			log.Fatalf("Can't close %s: %v", *outPNG, err)
		}
		return
	}

	sdl.Main(func() {
		var wg sync.WaitGroup
		wg.Add(1)
		sdl.Do(func() {
			if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
				log.Fatalf("Can't init SDL: %v", err)
			}

			var err error
			w, h := int32(float64(a2video.Width)**scale), int32(float64(a2video.Height)**scale)
			window, err = sdl.CreateWindow("a2view", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, w, h, sdl.WINDOW_SHOWN)
			if err != nil {
				log.Fatalf("Can't create window: %v", err)
			}
			surface, err = window.GetSurface()
			if err != nil {
				log.Fatalf("Can't get window surface: %v", err)
			}
			draw.NearestNeighbor.Scale(surface, surface.Bounds(), frame, frame.Bounds(), draw.Src, nil)
			window.UpdateSurface()
			wg.Done()
		})
		wg.Wait()
		defer func() {
			sdl.Do(func() {
				window.Destroy()
				sdl.Quit()
			})
		}()

		for running := true; running; {
			sdl.Do(func() {
				for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
					if _, ok := e.(*sdl.QuitEvent); ok {
						running = false
					}
				}
				sdl.Delay(16)
			})
		}
	})
}
