package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mydms/internal/appinfo"
	"github.com/ziadkadry99/mydms/internal/clientstore"
	"github.com/ziadkadry99/mydms/internal/navbar"
	"github.com/ziadkadry99/mydms/internal/notifications"
	"github.com/ziadkadry99/mydms/internal/progress"
	"github.com/ziadkadry99/mydms/internal/routing"
	"github.com/ziadkadry99/mydms/internal/state"
)

var navbarUser string

var navbarCmd = &cobra.Command{
	Use:   "navbar",
	Short: "Run the navigation bar in the terminal",
	Long: `Loads the application info from the backend and offers the navigation
bar's actions (search, show amounts, navigate) as an interactive menu. The
show-amount preference is kept in the local data dir across runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		st := state.New(clientstore.NewSQLStore(database).For(cfg.Client.ClientID))
		defer st.Close()
		router := routing.New(routing.DefaultDestinations)
		defer router.Close()

		dispatcher := notifications.NewDispatcher(notifications.NewStore(database))
		feed := dispatcher.Feed(cfg.Client.Surface)
		defer dispatcher.CloseFeed(cfg.Client.Surface)
		feed.Subscribe(func(n notifications.Notification) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", n.Title, n.Message)
		})

		router.Current().Subscribe(func(p string) {
			fmt.Fprintf(os.Stderr, "-> %s\n", p)
		})
		st.RequestReload().Subscribe(func(reload bool) {
			if reload {
				logf("Reload requested")
			}
		})

		spinner := progress.Follow(st.Progress(), progress.NewReporter(os.Stderr))
		defer spinner.Unsubscribe()

		backend := appinfo.NewClient(cfg.EffectiveBackendURL())
		if navbarUser != "" {
			backend = backend.WithHeader(appinfo.HeaderUser, navbarUser)
		}

		nb := navbar.New(backend, st, dispatcher, router, cfg.Client.Surface)
		defer nb.Close()

		st.SetProgress(true)
		nb.Init(ctx)
		nb.Wait()
		st.SetProgress(false)

		return runNavbarMenu(ctx, nb, router)
	},
}

const (
	actionSearch     = "Search"
	actionShowAmount = "Toggle amounts"
	actionNavigate   = "Navigate"
	actionMenu       = "Toggle menu"
	actionView       = "Show navigation bar"
	actionQuit       = "Quit"
)

func runNavbarMenu(ctx context.Context, nb *navbar.NavBar, router *routing.Router) error {
	for ctx.Err() == nil {
		printHeader(nb.View(), router)

		sel := promptui.Select{
			Label: "Action",
			Items: []string{actionSearch, actionShowAmount, actionNavigate, actionMenu, actionView, actionQuit},
		}
		_, action, err := sel.Run()
		if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("action selection: %w", err)
		}

		switch action {
		case actionSearch:
			p := promptui.Prompt{Label: "Search", Default: nb.View().SearchText}
			text, err := p.Run()
			if err != nil {
				continue
			}
			nb.OnSearch(text)

		case actionShowAmount:
			nb.ShowAmountToggle(!nb.View().ShowAmount)

		case actionNavigate:
			dests := router.Destinations()
			labels := make([]string, len(dests))
			for i, d := range dests {
				labels[i] = fmt.Sprintf("%-16s %s", d.Label, d.Path)
			}
			nb.ToggleMenu(true)
			sel := promptui.Select{Label: "Go to", Items: labels}
			idx, _, err := sel.Run()
			if err != nil {
				nb.ToggleMenu(false)
				continue
			}
			nb.NavigateTo(dests[idx].Path)

		case actionMenu:
			nb.ToggleMenu(!nb.View().MenuVisible)
			fmt.Fprintf(os.Stderr, "menu: %s\n", nb.MenuTransform())

		case actionView:
			printView(nb.View())

		case actionQuit:
			return nil
		}
	}
	return nil
}

func printHeader(v navbar.View, router *routing.Router) {
	var dests []string
	for _, d := range router.Destinations() {
		dests = append(dests, d.Path)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, navbar.Render(v, dests))
}

func printView(v navbar.View) {
	fmt.Printf("Menu:       %v (%s)\n", v.MenuVisible, v.MenuTransform)
	fmt.Printf("Progress:   %v\n", v.ShowProgress)
	fmt.Printf("Search:     %q\n", v.SearchText)
	fmt.Printf("Amounts:    %v\n", v.ShowAmount)
	if v.AppData == nil {
		fmt.Println("App info:   not loaded")
		return
	}
	info := v.AppData.AppInfo
	fmt.Printf("User:       %s <%s> %v\n", info.UserInfo.DisplayName, info.UserInfo.Email, info.UserInfo.Roles)
	fmt.Printf("Version:    %s build %s (%s)\n", info.VersionInfo.Version, info.VersionInfo.BuildNumber, info.VersionInfo.BuildDate)
}

func init() {
	navbarCmd.Flags().StringVar(&navbarUser, "user", "", "identity sent as "+appinfo.HeaderUser)
	rootCmd.AddCommand(navbarCmd)
}
