// Command ts plays the song that topped the charts at the point in
// the 1900s matching your model's accuracy.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/koayon/training-song/internal/authflow"
	"github.com/koayon/training-song/internal/credentials"
)

const (
	defaultAPIURL = "https://training-song-api.vercel.app"

	// Public identifier of the training-song Spotify app; the secret
	// stays server-side.
	spotifyClientID = "4259770654fb4353813dbf19d8b20608"

	localCallbackAddr = "localhost:8000"
	localCallbackPath = "/local_callback"
	localRedirectURI  = "http://localhost:8000/local_callback"
)

func main() {
	cmd := &cli.Command{
		Name:      "ts",
		Usage:     "turn a training accuracy into a chart-topping song",
		ArgsUsage: "[percentage]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "chart",
				Usage: "Billboard chart to consult",
				Value: "hot-100",
			},
			&cli.BoolFlag{
				Name:  "autoplay",
				Usage: "Start playback on an active Spotify device",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Email identifying your stored Spotify authorization",
			},
			&cli.StringFlag{
				Name:  "api",
				Usage: "training-song API base URL",
				Value: defaultAPIURL,
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	percentage, err := resolvePercentage(cmd.Args().First())
	if err != nil {
		return err
	}

	email := cmd.String("email")
	if email == "" {
		if email, err = resolveEmail(); err != nil {
			return err
		}
	}

	api := newAPIClient(cmd.String("api"))

	known, err := api.emailInDB(ctx, email)
	if err != nil {
		return fmt.Errorf("checking stored authorization: %w", err)
	}

	var code string
	if !known {
		if code, err = authorize(ctx); err != nil {
			return err
		}
	}

	sel, err := api.trainingSong(ctx, songParams{
		Percentage: percentage,
		Chart:      cmd.String("chart"),
		Autoplay:   cmd.Bool("autoplay"),
		Email:      email,
		Code:       code,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Congrats, your model got an accuracy of %v percent!\n", percentage)
	if sel.SongInfo != "" {
		fmt.Println(sel.SongInfo)
	}
	if sel.SpotifyLink != "" {
		fmt.Println(sel.SpotifyLink)
	}
	if sel.Errors != "" {
		fmt.Println(sel.Errors)
	}
	return nil
}

// authorize walks the user through Spotify consent in a browser and
// captures the authorization code locally.
func authorize(ctx context.Context) (string, error) {
	flow := authflow.New(localCallbackAddr, localCallbackPath)

	provider := credentials.NewSpotifyProvider(spotifyClientID, "", localRedirectURI)
	consentURL := provider.AuthCodeURL(flow.State())

	fmt.Println("To authorize, open this URL in your browser:")
	fmt.Println(consentURL)
	if err := openBrowser(consentURL); err != nil {
		fmt.Printf("(could not open a browser automatically: %v)\n", err)
	}
	fmt.Println("Waiting for authorization...")

	code, err := flow.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("capturing authorization code: %w", err)
	}
	return code, nil
}

// resolvePercentage takes the percentage from the argument or prompts
// for one.
func resolvePercentage(arg string) (float64, error) {
	if arg != "" {
		p, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, fmt.Errorf("percentage must be a number, got %q", arg)
		}
		return p, nil
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("How well did your model do? (Enter a percentage): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err == nil {
			return p, nil
		}
		fmt.Println("Please enter a number.")
	}
}
