// Command lascaux trains a feature dictionary stack on one image and dumps
// everything a run produces: the stack state, per-layer dictionary sheets, a
// reconstruction, the training error curve, an evolution gif and a graphviz
// view of the topology. With -http it also serves a live monitor.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	_ "net/http/pprof"

	"github.com/strataml/strata"
	"github.com/strataml/strata/encoding/chart"
	"github.com/strataml/strata/encoding/featgif"
	"github.com/strataml/strata/encoding/featjpeg"
	"github.com/strataml/strata/encoding/pixel"
)

var (
	imgPath   = flag.String("img", "", "training image (png, gif or jpeg)")
	statePath = flag.String("state", "lascaux.stack", "stack state file, resumed when present")
	outDir    = flag.String("out", "out", "directory for rendered artifacts")

	layers    = flag.Int("layers", 3, "number of layers")
	features  = flag.Int("features", 16, "templates per layer")
	fw        = flag.Int("fw", 8, "template side at the input layer")
	outWidth  = flag.Int("ow", 32, "output grid width")
	outHeight = flag.Int("oh", 32, "output grid height")
	rate      = flag.Float64("rate", 1, "learning rate")
	threshold = flag.Float64("threshold", 0.05, "per-layer advancement threshold on the running score")
	seed      = flag.Int64("seed", 1337, "dictionary seed")

	iters   = flag.Int("iters", 2000, "training iterations")
	samples = flag.Int("samples", 100, "patch samples per iteration")
	every   = flag.Int("every", 50, "iterations between snapshots")
	augment = flag.Bool("augment", false, "cycle quarter turns of the image between iterations (square grayscale only)")
	addr    = flag.String("http", "", "serve the live monitor on this address, e.g. :8080")
)

func main() {
	flag.Parse()
	if *imgPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *every < 1 {
		*every = 1
	}

	pix, w, h, depth, err := pixel.Decode(*imgPath)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("%s: %dx%dx%d", *imgPath, w, h, depth)

	st, err := buildStack(w, h, depth)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	variants, err := prepare(pix, w, h, depth)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	evo := featgif.NewEncoder(480, 360)
	live, ws := serveMonitor()
	snapshots := []strata.OutputEncoder{evo}
	if live != nil {
		snapshots = append(snapshots, live)
	}

	for i := 0; i < *iters && !st.TrainingComplete(); i++ {
		var score float32
		if *augment {
			score, err = st.LearnValues(variants[i%len(variants)], *samples)
		} else {
			score, err = st.Learn(pix, *samples)
		}
		if err != nil {
			log.Fatalf("%+v", err)
		}

		if (i+1)%*every == 0 {
			log.Printf("iter %d\tlayer %d/%d\tscore %.5f", i+1, st.CurrentLayer()+1, st.Layers(), score)
			for _, enc := range snapshots {
				if err := enc.Encode(st); err != nil {
					log.Fatalf("%+v", err)
				}
			}
			if ws != nil {
				ws.push(st)
			}
		}
	}
	if st.TrainingComplete() {
		log.Printf("training complete after %d iterations", st.Iterations())
	} else {
		log.Printf("stopped on layer %d/%d after %d iterations", st.CurrentLayer()+1, st.Layers(), st.Iterations())
	}

	if err := st.SaveFile(*statePath); err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("state saved to %s", *statePath)

	if err := render(st, evo, pix, w, h, depth); err != nil {
		log.Fatalf("%+v", err)
	}
}

// buildStack resumes from the state file when one exists and its geometry
// matches, otherwise starts fresh.
func buildStack(w, h, depth int) (*strata.Stack, error) {
	if _, err := os.Stat(*statePath); err == nil {
		st, err := strata.LoadFile(*statePath)
		if err != nil {
			return nil, err
		}
		conf := st.Config()
		if conf.Width != w || conf.Height != h || conf.Depth != depth {
			return nil, fmt.Errorf("state %s is %dx%dx%d, image is %dx%dx%d", *statePath, conf.Width, conf.Height, conf.Depth, w, h, depth)
		}
		log.Printf("resuming from %s at layer %d/%d, %d iterations in", *statePath, st.CurrentLayer()+1, st.Layers(), st.Iterations())
		return st, nil
	}

	conf := strata.DefaultConfig(w, h, depth)
	conf.Layers = *layers
	conf.Features = *features
	conf.FeatureWidth = *fw
	conf.OutputWidth = *outWidth
	conf.OutputHeight = *outHeight
	conf.LearnRate = float32(*rate)
	conf.Seed = *seed
	conf.Thresholds = make([]float32, conf.Layers)
	for i := range conf.Thresholds {
		conf.Thresholds[i] = float32(*threshold)
	}
	return strata.New(conf)
}

// prepare normalises the image and precomputes its eight dihedral variants
// when augmentation is on.
func prepare(pix []uint8, w, h, depth int) ([][]float32, error) {
	if !*augment {
		return nil, nil
	}
	if w != h || depth != 1 {
		return nil, fmt.Errorf("-augment needs a square grayscale image, got %dx%dx%d", w, h, depth)
	}

	vals := make([]float32, len(pix))
	for i, p := range pix {
		vals[i] = float32(p) / 255
	}
	return strata.Variants(vals, h, w,
		strata.Rotate90, strata.Rotate90, strata.Rotate90,
		strata.Mirror,
		strata.Rotate90, strata.Rotate90, strata.Rotate90,
	)
}

// serveMonitor starts the live http monitor when -http is set: an MJPEG view
// of the training layer's dictionary on /live and progress events on /ws.
func serveMonitor() (*featjpeg.Encoder, *wsMonitor) {
	if *addr == "" {
		return nil, nil
	}
	live := featjpeg.NewEncoder(480, 360)
	ws := newWsMonitor()
	mux := http.NewServeMux()
	mux.Handle("/live", live)
	mux.Handle("/ws", ws)

	go func() {
		log.Printf("live monitor on http://localhost%s/live", *addr)
		if err := http.ListenAndServe(*addr, mux); err != nil {
			log.Printf("monitor: %v", err)
		}
	}()
	return live, ws
}

// render writes the artifacts of a finished run into the output directory.
func render(st *strata.Stack, evo *featgif.Encoder, pix []uint8, w, h, depth int) error {
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}

	// training error curve
	histPath := filepath.Join(*outDir, "history.png")
	if err := st.History().Plot(chart.PNG{Path: histPath}, 640, 480); err != nil {
		return err
	}

	// one dictionary sheet per layer
	for l := 0; l < st.Layers(); l++ {
		d := st.Dictionary(l)
		ch := 1
		if d.Depth == 3 {
			ch = 3
		}
		sheet := make([]uint8, 256*256*ch)
		if err := d.Draw(sheet, 256, 256, ch); err != nil {
			return err
		}
		if err := pixel.Encode(filepath.Join(*outDir, fmt.Sprintf("layer_%d.png", l)), sheet, 256, 256, ch); err != nil {
			return err
		}
	}

	// reconstruction through every trained dictionary
	if err := st.FeedForward(pix, st.Layers()); err != nil {
		return err
	}
	recon, err := st.Reconstruct(st.Layers())
	if err != nil {
		return err
	}
	if err := pixel.Encode(filepath.Join(*outDir, "reconstruction.png"), recon, w, h, depth); err != nil {
		return err
	}

	// evolution gif; make sure there is at least the final frame
	if err := evo.Encode(st); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(*outDir, "evolution.gif"))
	if err != nil {
		return err
	}
	defer f.Close()
	evo.Writer = f
	if err := evo.Flush(); err != nil {
		return err
	}

	// topology for graphviz
	if err := os.WriteFile(filepath.Join(*outDir, "stack.dot"), []byte(st.ToDot()), 0644); err != nil {
		return err
	}

	// per-layer training summary
	if err := st.Statistics().Dump(filepath.Join(*outDir, "stats.csv")); err != nil {
		return err
	}

	log.Printf("artifacts in %s", *outDir)
	return nil
}
