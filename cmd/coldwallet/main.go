package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/coldwallet-ceremony/api"
	"github.com/ruteri/coldwallet-ceremony/ceremony"
	"github.com/ruteri/coldwallet-ceremony/cmd/flags"
	"github.com/ruteri/coldwallet-ceremony/coldwallet"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
	"github.com/urfave/cli/v2"
)

var TokensFlag = &cli.StringFlag{
	Name:  "tokens",
	Usage: "comma separated element tokens; generated when omitted",
}

var OutDirFlag = &cli.StringFlag{
	Name:  "out-dir",
	Value: ".",
	Usage: "directory to write init requests to",
}

var OutFlag = &cli.StringFlag{
	Name:  "out",
	Usage: "file to write the finalize request to; stdout when omitted",
}

var ElementTokenFlag = &cli.StringFlag{
	Name:     "element-token",
	Required: true,
	Usage:    "token of the element that will carry the finalize request",
}

var ContentTypeFlag = &cli.StringFlag{
	Name:  "type",
	Value: "request",
	Usage: "archived message type: request, response or contribution",
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "coldwallet",
		Usage: "Run the cold wallet creation ceremony over request and response files",
		Flags: append([]cli.Flag{flags.LogServiceFlagFn("coldwallet")}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write one init request per element",
				Flags:  append([]cli.Flag{flags.WalletIDFlag, flags.ThresholdFlag, TokensFlag, OutDirFlag}, flags.ArchiveFlags...),
				Action: runInit,
			},
			{
				Name:      "combine",
				Usage:     "Combine element contributions into a finalize request",
				ArgsUsage: "<contribution.json>...",
				Flags:     append([]cli.Flag{flags.WalletIDFlag, flags.ThresholdFlag, ElementTokenFlag, OutFlag}, flags.ArchiveFlags...),
				Action:    runCombine,
			},
			{
				Name:      "finalize",
				Usage:     "Extract the wallet's extended public key from the device response",
				ArgsUsage: "<response.json>",
				Flags:     append(append([]cli.Flag{}, flags.VerifierFlags...), flags.ArchiveFlags...),
				Action:    runFinalize,
			},
			{
				Name:      "archive-fetch",
				Usage:     "Print an archived ceremony message",
				ArgsUsage: "<content id>",
				Flags:     append([]cli.Flag{ContentTypeFlag, &cli.Int64Flag{Name: flags.WalletIDFlag.Name, Usage: flags.WalletIDFlag.Usage}}, flags.ArchiveFlags...),
				Action:    runArchiveFetch,
			},
		},
	}
}

func runInit(cCtx *cli.Context) error {
	logger := flags.SetupCLILogger(cCtx)
	walletID, err := flags.WalletID(cCtx)
	if err != nil {
		return err
	}
	threshold := cCtx.Int(flags.ThresholdFlag.Name)

	tokens, err := interfaces.ParseTokens(cCtx.String(TokensFlag.Name))
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := checkFileToken(token); err != nil {
			return err
		}
	}
	if len(tokens) == 0 {
		for i := 0; i < threshold; i++ {
			tokens = append(tokens, ceremony.NewToken())
		}
	}
	if len(tokens) != threshold {
		return fmt.Errorf("%d tokens given for threshold %d", len(tokens), threshold)
	}

	archive, err := flags.SetupArchive(cCtx, logger)
	if err != nil {
		return err
	}

	outDir := cCtx.String(OutDirFlag.Name)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	for _, token := range tokens {
		req := coldwallet.Init(token, walletID)

		data, err := api.MarshalRequest(req)
		if err != nil {
			return err
		}

		path := filepath.Join(outDir, fmt.Sprintf("init-%s.json", token))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("could not write init request: %w", err)
		}
		logger.Info("Wrote init request", "token", token, "path", path)

		if archive != nil {
			if _, err := archive.StoreRequest(cCtx.Context, req); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkFileToken rejects tokens that cannot be used as a file name component.
func checkFileToken(token interfaces.Token) error {
	name := string(token)
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("token %q cannot be used in a file name", name)
	}
	return nil
}

func runCombine(cCtx *cli.Context) error {
	logger := flags.SetupCLILogger(cCtx)
	walletID, err := flags.WalletID(cCtx)
	if err != nil {
		return err
	}

	if cCtx.NArg() == 0 {
		return fmt.Errorf("no contribution files given")
	}

	creator, err := coldwallet.NewCreator(coldwallet.Config{Threshold: cCtx.Int(flags.ThresholdFlag.Name)})
	if err != nil {
		return err
	}

	var records []*api.ContributionJSON
	for _, path := range cCtx.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read contribution: %w", err)
		}
		record, err := api.UnmarshalContribution(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, record)
	}

	contributions, err := api.ContributionMapFromJSON(walletID, records)
	if err != nil {
		return err
	}

	req, err := creator.Combine(contributions, interfaces.Token(cCtx.String(ElementTokenFlag.Name)), walletID)
	if err != nil {
		logger.Error("Contribution set rejected", "err", err)
		return err
	}

	data, err := api.MarshalRequest(req)
	if err != nil {
		return err
	}

	if out := cCtx.String(OutFlag.Name); out != "" {
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("could not write finalize request: %w", err)
		}
		logger.Info("Wrote finalize request", "token", req.Token, "path", out)
	} else {
		fmt.Fprintln(cCtx.App.Writer, string(data))
	}

	archive, err := flags.SetupArchive(cCtx, logger)
	if err != nil || archive == nil {
		return err
	}
	if _, err := archive.StoreContributions(cCtx.Context, walletID, contributions); err != nil {
		return err
	}
	_, err = archive.StoreRequest(cCtx.Context, req)
	return err
}

func runFinalize(cCtx *cli.Context) error {
	logger := flags.SetupCLILogger(cCtx)

	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected exactly one response file")
	}

	data, err := os.ReadFile(cCtx.Args().First())
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	response, err := api.UnmarshalResponse(data)
	if err != nil {
		return err
	}

	verifier, err := flags.SetupVerifier(cCtx)
	if err != nil {
		return err
	}

	// Finalize does not depend on the threshold.
	creator, err := coldwallet.NewCreator(coldwallet.Config{Threshold: coldwallet.DefaultThreshold, Verifier: verifier})
	if err != nil {
		return err
	}

	archive, err := flags.SetupArchive(cCtx, logger)
	if err != nil {
		return err
	}
	if archive != nil {
		if _, err := archive.StoreResponse(cCtx.Context, response); err != nil {
			return err
		}
	}

	xpub, err := creator.Finalize(response)
	if err != nil {
		logger.Error("Finalize response rejected", "verifier", verifier.Name(), "err", err)
		return err
	}

	logger.Info("Wallet finalized", "walletID", response.WalletID, "verifier", verifier.Name())
	fmt.Fprintln(cCtx.App.Writer, xpub)
	return nil
}

func runArchiveFetch(cCtx *cli.Context) error {
	logger := flags.SetupCLILogger(cCtx)

	archive, err := flags.SetupArchive(cCtx, logger)
	if err != nil {
		return err
	}
	if archive == nil {
		return fmt.Errorf("--%s is required", flags.ArchiveFlag.Name)
	}

	id, err := interfaces.NewContentIDFromHex(cCtx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid content id: %w", err)
	}

	var out []byte
	switch cCtx.String(ContentTypeFlag.Name) {
	case "request":
		req, err := archive.FetchRequest(cCtx.Context, id)
		if err != nil {
			return err
		}
		out, err = api.MarshalRequest(req)
		if err != nil {
			return err
		}
	case "response":
		resp, err := archive.FetchResponse(cCtx.Context, id)
		if err != nil {
			return err
		}
		out, err = api.MarshalResponse(resp)
		if err != nil {
			return err
		}
	case "contribution":
		walletID, err := flags.WalletID(cCtx)
		if err != nil {
			return err
		}
		contributions, err := archive.FetchContributions(cCtx.Context, walletID, id)
		if err != nil {
			return err
		}
		out, err = json.MarshalIndent(contributions, "", "  ")
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown message type %q", cCtx.String(ContentTypeFlag.Name))
	}

	fmt.Fprintln(cCtx.App.Writer, string(out))
	return nil
}
