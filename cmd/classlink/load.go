package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/daimatz/classlink/pkg/config"
	"github.com/daimatz/classlink/pkg/vm"
)

func cmdLoad(args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configDir := fs.String("config", "", "directory holding classlink.toml (default: search upward from .)")
	cp := fs.String("cp", "", "classpath, "+string(os.PathListSeparator)+"-separated; replaces the configured one")
	jdk := fs.String("jdk", "", `JDK home or java.base.jmod ("auto" to discover, "none" to skip)`)
	verbose := fs.Bool("v", false, "debug logging")
	list := fs.Bool("list", false, "list every loaded class")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if *configDir != "" {
		cfg, err = config.Load(*configDir)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if *cp != "" {
		cfg.Classpath = filepath.SplitList(*cp)
		cfg.Dir = "."
	}
	switch *jdk {
	case "":
	case "none":
		cfg.JDK = ""
	default:
		cfg.JDK = *jdk
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	names := fs.Args()
	if len(names) == 0 && cfg.Entry != "" {
		names = []string{cfg.EntryClass()}
	}
	if len(names) == 0 {
		return fmt.Errorf("no classes given and no entry configured")
	}
	for i, n := range names {
		names[i] = strings.ReplaceAll(n, ".", "/")
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	roots, err := cfg.SearchPath()
	if err != nil {
		return err
	}

	rt, err := vm.Start(vm.Options{Classpath: roots, Logger: log})
	if err != nil {
		return err
	}
	defer rt.Close()

	classes, err := rt.LoadAll(names...)
	if err != nil {
		return err
	}

	for _, c := range classes {
		printClass(c)
	}
	if *list {
		for _, c := range rt.Classes() {
			fmt.Println(c.Name)
		}
	}

	st := rt.Stats()
	log.Info("load finished",
		zap.Strings("classes", names),
		zap.Int("loaded", st.Loaded),
		zap.Int64("parsed", st.Parsed),
		zap.Int64("retries", st.Retries))
	fmt.Printf("%s classes loaded, %s parsed\n", humanize.Comma(int64(st.Loaded)), humanize.Comma(st.Parsed))
	return nil
}

func printClass(c *vm.Class) {
	var chain []string
	for k := c.Super; k != nil; k = k.Super {
		chain = append(chain, k.Name)
	}
	fmt.Printf("%s\n", c.Name)
	if len(chain) > 0 {
		fmt.Printf("  extends    %s\n", strings.Join(chain, " -> "))
	}
	if len(c.Interfaces) > 0 {
		names := make([]string, len(c.Interfaces))
		for i, iface := range c.Interfaces {
			names[i] = iface.Name
		}
		fmt.Printf("  implements %s\n", strings.Join(names, ", "))
	}

	refs := 0
	for _, e := range c.Pool {
		if _, ok := e.(*vm.ClassRef); ok {
			refs++
		}
	}
	fmt.Printf("  %d methods, %d static fields, %d instance fields, %d class refs\n",
		len(c.Methods), len(c.StaticFields()), len(c.InstanceFields), refs)
}
