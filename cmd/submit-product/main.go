package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raine/telegram-tryon-bot/config"
	"github.com/raine/telegram-tryon-bot/internal/catalog"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/product"
	"github.com/raine/telegram-tryon-bot/internal/submission"
)

func main() {
	config.LoadEnvFile()

	name := flag.String("name", "", "product name")
	brand := flag.String("brand", "", "brand")
	session := flag.String("session", os.Getenv("SELLER_SESSION"), "seller SESSION cookie (defaults to $SELLER_SESSION)")
	templatePath := flag.String("template", "", "product template JSON (defaults to $PRODUCT_TEMPLATE_PATH or the built-in one)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -name <name> -brand <brand> [-session <cookie>] <image>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Images are local paths or http(s) urls, submitted in order.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *session == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	if err := checkImageCount(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *templatePath == "" {
		*templatePath = os.Getenv("PRODUCT_TEMPLATE_PATH")
	}

	var tmpl *product.Template
	if *templatePath != "" {
		var err error
		tmpl, err = product.LoadTemplate(*templatePath)
		if err != nil {
			fmt.Printf("Failed to load template: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := catalog.NewClient(catalog.ClientOpts{
		CodeGeneratorURL: os.Getenv("CODE_GENERATOR_URL"),
		BaseURL:          os.Getenv("SELLER_API_BASE_URL"),
		Session:          *session,
	})
	// No Telegram references from the command line
	resolver := images.NewRefResolver(images.NewImageDownloader(), nil)

	fmt.Printf("Submitting %q (%s) with %d images...\n", *name, *brand, flag.NArg())
	res, err := submission.NewCoordinator(client, resolver, tmpl).Submit(ctx, submission.Request{
		Name:   *name,
		Brand:  *brand,
		Images: flag.Args(),
	})
	if err != nil {
		if stage := submission.FailedStage(err); stage != "" {
			fmt.Printf("✗ Failed at %s stage: %v\n", stage, err)
		} else {
			fmt.Printf("✗ %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("✓ Product created: %s\n", res.ProductCode)
	for _, u := range res.Uploads {
		fmt.Printf("  [%d] %s\n", u.Sequence, u.LocationPath)
	}
}

// checkImageCount applies the photo limit of the bot form to the command line.
func checkImageCount(refs []string) error {
	if len(refs) > images.MaxUploadedImages {
		return fmt.Errorf("too many images: %d given, at most %d allowed", len(refs), images.MaxUploadedImages)
	}
	return nil
}
