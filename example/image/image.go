package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/swdee/go-facewatch"
	"github.com/swdee/go-facewatch/anomaly"
	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/internal/config"
	"github.com/swdee/go-facewatch/internal/log"
	"github.com/swdee/go-facewatch/mapper"
	"github.com/swdee/go-facewatch/preprocess"
	"github.com/swdee/go-facewatch/render"
	"gocv.io/x/gocv"
)

func main() {

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	imgFile := flag.String("img", "../data/face.jpg", "Image file to run face detection on")
	saveFile := flag.String("o", "../data/face-out.jpg", "The output JPG file with overlays drawn")

	flag.Parse()

	logger := log.NewLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	data, err := os.ReadFile(*imgFile)

	if err != nil {
		logger.WithError(err).Fatal("Error reading image file")
	}

	src, _, err := image.Decode(bytes.NewReader(data))

	if err != nil {
		logger.WithError(err).Fatal("Error decoding image file")
	}

	format, err := facewatch.ParseFormat(cfg.DetectorFormat)

	if err != nil {
		logger.Fatal(err)
	}

	detector := facewatch.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorTimeout)
	detector.SetFormat(format)
	defer detector.Close()

	dets, err := detector.DetectBytes(context.Background(), data)

	if err != nil {
		logger.WithError(err).Fatal("Error running detection")
	}

	events := anomaly.NewClassifier().Classify(dets)

	// scale the still to the display size the same way a browser would
	displayed := geometry.NewSize(cfg.DisplayWidth, cfg.DisplayHeight)
	scaled, tr, err := preprocess.CoverImage(src, displayed)

	if err != nil {
		logger.WithError(err).Fatal("Error scaling image")
	}

	b := src.Bounds()

	set, _ := render.Build(render.Set{}, render.Frame{
		Geometry: mapper.FrameGeometry{
			Native:    geometry.NewSize(b.Dx(), b.Dy()),
			Displayed: displayed,
			Fit:       mapper.Cover,
		},
		Transform:  tr,
		Detections: dets,
		Events:     events,
		Allow:      facewatch.ParseLabels(cfg.Labels),
	})

	out, err := gocv.ImageToMatRGB(scaled)

	if err != nil {
		logger.WithError(err).Fatal("Error converting image")
	}

	defer out.Close()

	render.Draw(&out, set, render.DefaultStyle())

	if ok := gocv.IMWrite(*saveFile, out); !ok {
		logger.Fatalf("Error writing output file %s", *saveFile)
	}

	js, err := jsoniter.MarshalIndent(set, "", "  ")

	if err != nil {
		logger.WithError(err).Fatal("Error encoding overlay set")
	}

	logger.WithFields(log.Fields{
		"detections": len(dets),
		"labels":     anomaly.Labels(events),
		"saved":      *saveFile,
	}).Info("Image processed")

	os.Stdout.Write(append(js, '\n'))
}
