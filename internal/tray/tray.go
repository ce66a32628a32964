package tray

import (
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/PixPMusic/gopher-deck/internal/config"
	"github.com/PixPMusic/gopher-deck/internal/startup"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/sirupsen/logrus"
)

// Callbacks for tray menu actions. They run on the fyne goroutine.
type Callbacks struct {
	OnVinylMode   func(on bool)
	OnResetLights func()
	OnQuit        func()
}

// Tray is the system tray menu. Its icon shows the pad mode of each deck.
type Tray struct {
	desk       desktop.App
	menu       *fyne.Menu
	statusItem *fyne.MenuItem

	font      *truetype.Font
	iconLabel string

	log logrus.FieldLogger
}

// Setup initializes the system tray using Fyne's built-in support. loginArgs
// are passed to the login item when "Open at Startup" is checked. It returns
// nil when the app has no tray.
func Setup(app fyne.App, cfg *config.Config, loginArgs []string, callbacks Callbacks, log logrus.FieldLogger) *Tray {
	desk, ok := app.(desktop.App)
	if !ok {
		return nil
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Tray{desk: desk, log: log.WithField("component", "tray")}

	font, err := freetype.ParseFont(theme.DefaultTextFont().Content())
	if err != nil {
		t.log.Warnf("Failed to parse font, tray icon stays static: %v", err)
	} else {
		t.font = font
	}

	t.statusItem = fyne.NewMenuItem("Waiting for controller", nil)
	t.statusItem.Disabled = true

	vinylItem := fyne.NewMenuItem("Vinyl Mode", nil)
	vinylItem.Checked = cfg.ControllerSettings().VinylMode

	resetItem := fyne.NewMenuItem("Reset Lights", func() {
		if callbacks.OnResetLights != nil {
			callbacks.OnResetLights()
		}
	})

	startupItem := fyne.NewMenuItem("Open at Startup", nil)
	startupItem.Checked = cfg.OpenAtStartup

	quitItem := fyne.NewMenuItem("Quit", func() {
		if callbacks.OnQuit != nil {
			callbacks.OnQuit()
		}
	})

	t.menu = fyne.NewMenu("GopherDeck",
		t.statusItem,
		fyne.NewMenuItemSeparator(),
		vinylItem,
		resetItem,
		fyne.NewMenuItemSeparator(),
		startupItem,
		fyne.NewMenuItemSeparator(),
		quitItem,
	)

	// Set the actions after menu is created so we can refresh it
	vinylItem.Action = func() {
		vinylItem.Checked = !vinylItem.Checked
		cfg.SetVinylMode(vinylItem.Checked)
		if callbacks.OnVinylMode != nil {
			callbacks.OnVinylMode(vinylItem.Checked)
		}
		t.save(cfg)
		t.menu.Refresh()
	}

	startupItem.Action = func() {
		var err error
		if startupItem.Checked {
			err = startup.Disable()
		} else {
			err = startup.Enable(loginArgs...)
		}
		if err != nil {
			t.log.Warnf("Failed to change login item: %v", err)
			return
		}
		startupItem.Checked = !startupItem.Checked
		cfg.OpenAtStartup = startupItem.Checked
		t.save(cfg)
		t.menu.Refresh()
	}

	desk.SetSystemTrayMenu(t.menu)
	if icon, ok := t.icon("HC", "HC"); ok {
		desk.SetSystemTrayIcon(icon)
	} else {
		desk.SetSystemTrayIcon(theme.MediaPlayIcon())
	}
	return t
}

// icon renders lines into a tray icon, or reports false when they are already
// shown or cannot be drawn
func (t *Tray) icon(lines ...string) (fyne.Resource, bool) {
	label := strings.Join(lines, "-")
	if t.font == nil || len(lines) == 0 || label == t.iconLabel {
		return nil, false
	}
	data, err := renderIcon(t.font, color.White, lines...)
	if err != nil {
		t.log.Warnf("Failed to render tray icon: %v", err)
		return nil, false
	}
	t.iconLabel = label
	return fyne.NewStaticResource("gopher-deck-"+label+".png", data), true
}

func (t *Tray) save(cfg *config.Config) {
	if err := cfg.Save(); err != nil {
		t.log.Warnf("Failed to save config: %v", err)
	}
}

// SetStatus replaces the status line and redraws the icon from iconLines.
// Calls must come from one goroutine; the menu itself is updated on the fyne
// goroutine.
func (t *Tray) SetStatus(text string, iconLines ...string) {
	if t == nil {
		return
	}
	icon, redraw := t.icon(iconLines...)
	fyne.Do(func() {
		t.statusItem.Label = text
		t.menu.Refresh()
		if redraw {
			t.desk.SetSystemTrayIcon(icon)
		}
	})
}
