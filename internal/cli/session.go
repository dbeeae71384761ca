package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/pshelper/internal/exposure"
	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/report"
	"github.com/0x6d61/pshelper/internal/session"
)

var showCmd = &cobra.Command{
	Use:   "show <dir>",
	Short: "Show the details of one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var convertCmd = &cobra.Command{
	Use:   "convert <dir>",
	Short: "Sort a session's images into Raw, Processed and Masks and write its record",
	Long: `Convert moves loose images into the Raw, Processed and Masks folders (masks
first), takes the id and name from a folder named "<id> <name>", derives the
status and writes the session record.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var syncCmd = &cobra.Command{
	Use:   "sync <dir>",
	Short: "Re-derive a session's record when it no longer matches the files",
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status <dir>",
	Short: "Set a session's status",
	Long: `Status either assigns a custom status (--custom N puts the session N steps past
TextureGenDone) or derives it from the session's files (--auto). A custom
status survives --auto unless --overwrite is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var editCmd = &cobra.Command{
	Use:   "edit <dir>",
	Short: "Edit a session's id, name, description, notes or capture date",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore <dir>",
	Short: "Exclude a session from scanning (or include it again with --unset)",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnore,
}

var exposureCmd = &cobra.Command{
	Use:   "exposure <dir>",
	Short: "Show or change how a session's raw images are developed",
	Long: `Without flags, exposure prints the current settings.

White balance modes: default, camera, average, custom (--wb-custom R,G1,B,G2).
Brightness modes: auto-histogram, disabled, scaled (--scale F).`,
	Args: cobra.ExactArgs(1),
	RunE: runExposure,
}

func init() {
	rootCmd.AddCommand(showCmd, convertCmd, syncCmd, statusCmd, editCmd, ignoreCmd, exposureCmd)

	syncCmd.Flags().Bool("force", false, "Re-derive even when the record is in sync")

	statusCmd.Flags().Int("custom", 0, "Custom status offset past TextureGenDone")
	statusCmd.Flags().Bool("auto", false, "Derive the status from the session's files")
	statusCmd.Flags().Bool("overwrite", false, "With --auto, replace a custom status too")
	statusCmd.MarkFlagsMutuallyExclusive("custom", "auto")
	statusCmd.MarkFlagsOneRequired("custom", "auto")

	editCmd.Flags().Uint64("id", 0, "Session id")
	editCmd.Flags().String("name", "", "Session name")
	editCmd.Flags().String("description", "", "Session description")
	editCmd.Flags().StringArray("note", nil, "Append a note (repeatable)")
	editCmd.Flags().String("captured", "", "Capture date (2006-01-02, \"2006-01-02 15:04:05\" or RFC 3339)")

	ignoreCmd.Flags().Bool("unset", false, "Include the session in scans again")

	exposureCmd.Flags().String("wb", "", "White balance mode")
	exposureCmd.Flags().Float64Slice("wb-custom", nil, "Custom white balance multipliers R,G1,B,G2")
	exposureCmd.Flags().String("brightness", "", "Brightness mode")
	exposureCmd.Flags().Float64("scale", 0, "Brightness scale for the scaled mode")
}

// requireRecord rejects sessions that cannot be edited.
func requireRecord(sess *session.Session) error {
	if sess.ExplicitlyIgnored() {
		return fmt.Errorf("session %s is explicitly ignored (run \"pshelper ignore --unset\" first)", sess.Root())
	}
	if !sess.Initialized() {
		return fmt.Errorf("session %s has no record yet (run \"pshelper convert\" first)", sess.Root())
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.openSession(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return a.render(ctx, &report.Listing{Sessions: []session.Snapshot{sess.Snapshot()}}, true)
}

func runConvert(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.openSession(args[0])
	if err != nil {
		return err
	}
	if sess.ExplicitlyIgnored() {
		return fmt.Errorf("session %s is explicitly ignored (run \"pshelper ignore --unset\" first)", sess.Root())
	}
	if err := sess.ConvertDefault(); err != nil {
		return fmt.Errorf("convert failed: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	a.publish(ctx, sess)
	fmt.Fprintf(a.out, "[+] Converted %s (id %d, %d raw, %d processed, %d masks, status %s)\n",
		sess.Folder(), sess.ID(), sess.RawCount(), sess.ProcessedCount(), sess.MaskCount(), sess.Status())
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	force, _ := cmd.Flags().GetBool("force")
	sess, err := a.openSession(args[0])
	if err != nil {
		return err
	}
	if err := requireRecord(sess); err != nil {
		return err
	}

	changed, err := sess.Sync(force)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if changed {
		sess.AutoSetStatus(false)
		if err := sess.Save(); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()
	a.publish(ctx, sess)
	if changed {
		fmt.Fprintf(a.out, "[+] Resynced %s (status %s)\n", sess.Folder(), sess.Status())
	} else {
		fmt.Fprintf(a.out, "[*] %s is up to date\n", sess.Folder())
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.openSession(args[0])
	if err != nil {
		return err
	}
	if err := requireRecord(sess); err != nil {
		return err
	}

	if cmd.Flags().Changed("custom") {
		offset, _ := cmd.Flags().GetInt("custom")
		sess.SetCustomStatus(offset)
	} else {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		sess.AutoSetStatus(overwrite)
	}
	if err := sess.Save(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	a.publish(ctx, sess)
	st := sess.Status()
	fmt.Fprintf(a.out, "[+] %s: %s (%s)\n", sess.Folder(), st, st.Description())
	return nil
}

// captureLayouts are the accepted --captured formats, tried in order.
var captureLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	fingerprint.DateTimeLayout,
}

func parseCaptured(value string) (time.Time, error) {
	for _, layout := range captureLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --captured %q (use 2006-01-02, \"2006-01-02 15:04:05\" or RFC 3339)", value)
}

func runEdit(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	flags := cmd.Flags()
	if !flags.Changed("id") && !flags.Changed("name") && !flags.Changed("description") &&
		!flags.Changed("note") && !flags.Changed("captured") {
		return fmt.Errorf("nothing to edit (use --id, --name, --description, --note or --captured)")
	}

	var captured time.Time
	if flags.Changed("captured") {
		value, _ := flags.GetString("captured")
		if captured, err = parseCaptured(value); err != nil {
			return err
		}
	}

	sess, err := a.openSession(args[0])
	if err != nil {
		return err
	}
	if err := requireRecord(sess); err != nil {
		return err
	}

	if flags.Changed("id") {
		id, _ := flags.GetUint64("id")
		sess.SetID(id)
	}
	if flags.Changed("name") {
		name, _ := flags.GetString("name")
		sess.SetName(name)
	}
	if flags.Changed("description") {
		desc, _ := flags.GetString("description")
		sess.SetDescription(desc)
	}
	notes, _ := flags.GetStringArray("note")
	for _, n := range notes {
		sess.AddNote(n)
	}
	if !captured.IsZero() {
		sess.SetCapturedAt(captured)
	}
	if err := sess.Save(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	a.publish(ctx, sess)
	fmt.Fprintf(a.out, "[+] Updated %s\n", sess.Folder())
	return nil
}

func runIgnore(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	unset, _ := cmd.Flags().GetBool("unset")
	sess, err := a.openSession(args[0])
	if err != nil {
		return err
	}
	if err := sess.SetExplicitlyIgnored(!unset); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	a.publish(ctx, sess)
	if unset {
		fmt.Fprintf(a.out, "[+] %s is scanned again\n", sess.Folder())
	} else {
		fmt.Fprintf(a.out, "[+] %s is now ignored\n", sess.Folder())
	}
	return nil
}

func runExposure(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.openSession(args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("wb") && !flags.Changed("wb-custom") && !flags.Changed("brightness") && !flags.Changed("scale") {
		fmt.Fprintf(a.out, "%s: %s\n", sess.Folder(), report.DescribeExposure(sess.Exposure()))
		return nil
	}
	if err := requireRecord(sess); err != nil {
		return err
	}

	e := sess.Exposure()
	if flags.Changed("wb") {
		name, _ := flags.GetString("wb")
		if e.WBMode, err = exposure.ParseWhiteBalanceMode(name); err != nil {
			return err
		}
	}
	if flags.Changed("wb-custom") {
		mult, _ := flags.GetFloat64Slice("wb-custom")
		if len(mult) != 4 {
			return fmt.Errorf("--wb-custom needs 4 multipliers (R,G1,B,G2), got %d", len(mult))
		}
		copy(e.WBCustom[:], mult)
		if !flags.Changed("wb") {
			e.WBMode = exposure.WBCustom
		}
	}
	if flags.Changed("brightness") {
		name, _ := flags.GetString("brightness")
		if e.BrightMode, err = exposure.ParseBrightnessMode(name); err != nil {
			return err
		}
	}
	if flags.Changed("scale") {
		e.BrightScale, _ = flags.GetFloat64("scale")
		if !flags.Changed("brightness") {
			e.BrightMode = exposure.BrightScaled
		}
	}
	if err := sess.SetExposure(e); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	a.publish(ctx, sess)
	fmt.Fprintf(a.out, "[+] %s: %s\n", sess.Folder(), report.DescribeExposure(sess.Exposure()))
	return nil
}
