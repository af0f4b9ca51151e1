package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"reblock/archive"
	"reblock/block"
	"reblock/blocktemplate"
	"reblock/config"
	"reblock/editor"
	"reblock/fragment"
	"reblock/session"
	"reblock/state"
)

// documentPaths gets source and destination from command line. Destination
// defaults to source, in which case document is replaced in place.
func documentPaths(cmd *cli.Command, log *zap.Logger) (src, dst string, err error) {
	src = cmd.Args().Get(0)
	if len(src) == 0 {
		return "", "", errors.New("no input document has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return "", "", err
	}
	dst = cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = src
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return "", "", err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	return src, dst, nil
}

// prepare sets up everything document processing subcommands share.
func prepare(ctx context.Context, cmd *cli.Command, name string) (*state.LocalEnv, *zap.Logger, string, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, "", "", err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named(name)

	src, dst, err := documentPaths(cmd, log)
	if err != nil {
		return nil, nil, "", "", err
	}
	env.Overwrite = cmd.Bool("overwrite")
	if err := env.OpenFragments(ctx); err != nil {
		return nil, nil, "", "", err
	}
	return env, log, src, dst, nil
}

func loadDocument(env *state.LocalEnv, path string, log *zap.Logger) (*editor.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	defer f.Close()

	nodes, err := block.ReadDocument(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read document %q: %w", path, err)
	}
	if err := env.Rpt.StoreCopy(filepath.Join("before", filepath.Base(path)), path); err != nil {
		log.Warn("Unable to store document in report", zap.Error(err))
	}
	return editor.New(filepath.Base(path), log, nodes...)
}

func saveDocument(env *state.LocalEnv, path string, doc *editor.Store, log *zap.Logger) (err error) {
	if err := env.Rpt.StoreYAML(filepath.Join("after", filepath.Base(path)), doc.Blocks()); err != nil {
		log.Warn("Unable to store document in report", zap.Error(err))
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !env.Overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output document already exists, use --overwrite to replace: %s", path)
		}
		return fmt.Errorf("unable to create output document: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return block.WriteDocument(f, doc.Blocks())
}

func engine(env *state.LocalEnv, log *zap.Logger) *Engine {
	return NewEngine(env.Fragments, log, WithTitleFormatter(env.Titles))
}

func clientIDs(in []string) []block.ClientID {
	ids := make([]block.ClientID, 0, len(in))
	for _, s := range in {
		for part := range strings.SplitSeq(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, block.ClientID(part))
			}
		}
	}
	return ids
}

func elapsed(log *zap.Logger) func() {
	start := time.Now()
	return func() {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}
}

// RunReusable converts blocks of the document into reusable fragment.
func RunReusable(ctx context.Context, cmd *cli.Command) error {
	env, log, src, dst, err := prepare(ctx, cmd, "reusable")
	if err != nil {
		return err
	}
	ids := clientIDs(cmd.StringSlice("block"))
	if len(ids) == 0 {
		return fmt.Errorf("no blocks to convert: %w", ErrNothingToConvert)
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Int("blocks", len(ids)))
	defer elapsed(log)()

	doc, err := loadDocument(env, src, log)
	if err != nil {
		return err
	}
	r, err := engine(env, log).MakeReusable(ctx, doc, ids, cmd.String("title"), !cmd.Bool("no-save"))
	if err != nil {
		if r == nil {
			return err
		}
		// document is still consistent, it references temporary fragment
		log.Error("Fragment was not saved", zap.Error(err))
	}
	log.Info("Fragment created", zap.String("fragment", r.Reference.Ref()), zap.String("title", r.Fragment.Title), zap.Stringer("reference", r.Reference.ClientID))
	return multierr.Append(err, saveDocument(env, dst, doc, log))
}

// RunStatic replaces references of the document with copies of fragment
// content. Without explicit blocks every reference is expanded.
func RunStatic(ctx context.Context, cmd *cli.Command) error {
	env, log, src, dst, err := prepare(ctx, cmd, "static")
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer elapsed(log)()

	doc, err := loadDocument(env, src, log)
	if err != nil {
		return err
	}
	refs := clientIDs(cmd.StringSlice("block"))
	if len(refs) == 0 {
		block.Walk(doc.Blocks(), func(n *block.Node, _ int) bool {
			if n.IsReference() {
				refs = append(refs, n.ClientID)
			}
			return true
		})
	}
	if len(refs) == 0 {
		log.Warn("Nothing to do, document has no references")
		return nil
	}

	e := engine(env, log)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		nodes, err := e.MakeStatic(ctx, doc, ref)
		if err != nil {
			return fmt.Errorf("unable to expand reference %q: %w", ref, err)
		}
		log.Debug("Reference expanded", zap.Stringer("reference", ref), zap.Int("blocks", len(nodes)))
	}
	return saveDocument(env, dst, doc, log)
}

// RunSync brings document in line with structural template.
func RunSync(ctx context.Context, cmd *cli.Command) error {
	env, log, src, dst, err := prepare(ctx, cmd, "sync")
	if err != nil {
		return err
	}
	tmplPath := cmd.String("template")
	if len(tmplPath) == 0 {
		tmplPath = env.Cfg.Editor.Template
	}
	if len(tmplPath) == 0 {
		return errors.New("no template has been specified")
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.String("template", tmplPath))
	defer elapsed(log)()

	f, err := os.Open(tmplPath)
	if err != nil {
		return fmt.Errorf("unable to open template: %w", err)
	}
	defer f.Close()
	tmpl, err := blocktemplate.ReadTemplate(f)
	if err != nil {
		return err
	}

	doc, err := loadDocument(env, src, log)
	if err != nil {
		return err
	}
	if blocktemplate.Matches(doc.Blocks(), tmpl) {
		log.Info("Document already matches template")
		if src == dst {
			return nil
		}
		return saveDocument(env, dst, doc, log)
	}
	synced, err := blocktemplate.Synchronize(doc.Blocks(), tmpl, block.DefaultRegistry())
	if err != nil {
		return err
	}
	if current := blockIDs(doc.Blocks()); len(current) > 0 {
		err = doc.ReplaceBlocks(current, synced)
	} else {
		err = doc.ReceiveBlocks(synced)
	}
	if err != nil {
		return err
	}
	return saveDocument(env, dst, doc, log)
}

func blockIDs(nodes []*block.Node) []block.ClientID {
	ids := make([]block.ClientID, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ClientID)
	}
	return ids
}

// RunShow prints document together with content of every referenced
// fragment, each in its own isolated session.
func RunShow(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("show")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input document has been specified")
	}
	if err := env.OpenFragments(ctx); err != nil {
		return err
	}
	doc, err := loadDocument(env, src, log)
	if err != nil {
		return err
	}
	doc.SetReadOnly(true)

	mgr := session.NewManager(doc, env.Fragments, log)
	defer mgr.Close()

	sessions, err := mgr.MountAll(ctx)
	if err != nil {
		log.Warn("Some fragments are not available", zap.Error(err))
	}
	return writeSessions(cmd.Root().Writer, doc, sessions)
}

func writeSessions(w io.Writer, doc *editor.Store, sessions []*session.Session) error {
	if _, err := fmt.Fprintf(w, "%s\n%s", doc.Name(), doc.Render()); err != nil {
		return err
	}
	for _, s := range sessions {
		var err error
		if tree := s.Tree(); tree != nil {
			_, err = fmt.Fprintf(w, "\n%s -> %s (%s)\n%s", s.ReferenceID(), s.FragmentID(), s.Mode(), tree.Render())
		} else {
			// placeholder, fragment is missing or still being fetched
			_, err = fmt.Fprintf(w, "\n%s -> %s (unavailable: %v)\n", s.ReferenceID(), s.FragmentID(), s.Err())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// RunFragments lists stored fragments. Documents from zip archive could be
// imported as new fragments first, listed fragments could be exported as
// documents into directory.
func RunFragments(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("fragments")

	if cmd.Args().Len() > 0 {
		log.Warn("Malformed command line, unexpected arguments", zap.Strings("ignoring", cmd.Args().Slice()))
	}
	if err := env.OpenFragments(ctx); err != nil {
		return err
	}
	if src := cmd.String("import"); len(src) > 0 {
		if err := importFragments(ctx, engine(env, log), src, log); err != nil {
			return err
		}
	}
	list, err := env.Store.List(ctx)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	for _, f := range list {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\n", f.ID, f.Title, block.Count([]*block.Node{f.Content})); err != nil {
			return err
		}
	}

	dir := cmd.String("export")
	if len(dir) == 0 {
		return nil
	}
	return exportFragments(dir, list, cmd.Bool("overwrite"), log)
}

// importFragments persists every YAML document of the archive as fragment
// titled after document file name.
func importFragments(ctx context.Context, e *Engine, src string, log *zap.Logger) error {
	var count int
	err := archive.Walk(src, []string{".yaml", ".yml"}, func(name string, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		nodes, err := block.ReadDocument(r)
		if err != nil {
			return fmt.Errorf("unable to import %q: %w", name, err)
		}
		if len(nodes) == 0 {
			log.Warn("Empty document skipped", zap.String("name", name))
			return nil
		}
		rf, err := e.ToReusable(nodes, strings.TrimSuffix(path.Base(name), path.Ext(name)))
		if err != nil {
			return fmt.Errorf("unable to import %q: %w", name, err)
		}
		id, err := e.cache.Save(ctx, rf.Fragment.ID)
		if err != nil {
			return err
		}
		log.Debug("Fragment imported", zap.String("name", name), zap.Stringer("fragment", id))
		count++
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("Fragments imported", zap.String("archive", src), zap.Int("count", count))
	return nil
}

func exportFragments(dir string, list []*fragment.Fragment, overwrite bool, log *zap.Logger) (err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create export directory: %w", err)
	}
	for _, f := range list {
		name := f.Title
		if len(name) == 0 {
			name = string(f.ID)
		}
		path := filepath.Join(dir, config.CleanFileName(name+" "+string(f.ID))+".yaml")
		err = multierr.Append(err, exportFragment(path, f, overwrite))
	}
	log.Info("Fragments exported", zap.String("directory", dir), zap.Int("count", len(list)))
	return err
}

func exportFragment(path string, f *fragment.Fragment, overwrite bool) (err error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("unable to export fragment %q: %w", f.ID, err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()
	return block.WriteDocument(out, []*block.Node{f.Content})
}
