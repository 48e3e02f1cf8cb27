/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"

	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/storage"
	"github.com/Comcast/chunks/storage/bolt"

	"github.com/spf13/cobra"
)

var snapshotOpts struct {
	modules

	db   string
	host string
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save, show, or remove module snapshots in a bolt database",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Load modules from files and save them",
	Args:  cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, st storage.Storage) error {
		e := engine.NewEngine(nil, logger)
		algorithms, err := snapshotOpts.algorithms(cmd)
		if err != nil {
			return err
		}
		if err = snapshotOpts.load(e, algorithms); err != nil {
			return err
		}
		mss := storage.Snapshot(e)
		if err = st.WriteState(cmd.Context(), snapshotOpts.host, mss); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %d modules\n", len(mss))
		return nil
	}),
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved modules",
	Args:  cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, st storage.Storage) error {
		mss, err := st.GetHost(cmd.Context(), snapshotOpts.host)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ms := range mss {
			fmt.Fprintf(out, "# module %s", ms.Module)
			if ms.ReadOnly {
				fmt.Fprintf(out, " (read-only)")
			}
			fmt.Fprintln(out)
			if ms.Buffer != "" {
				fmt.Fprintf(out, "# buffer %s\n", ms.Buffer)
			}
			fmt.Fprintln(out, ms.Graph)
		}
		return nil
	}),
}

var snapshotRmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Remove the host's saved modules",
	Args:  cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, st storage.Storage) error {
		return st.RemHost(cmd.Context(), snapshotOpts.host)
	}),
}

func withStorage(f func(*cobra.Command, storage.Storage) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		st := bolt.NewStorage(snapshotOpts.db, logger.Named("storage"))
		if err := st.Open(cmd.Context()); err != nil {
			return err
		}
		defer st.Close(cmd.Context())
		return f(cmd, st)
	}
}

func init() {
	pfs := snapshotCmd.PersistentFlags()
	pfs.StringVar(&snapshotOpts.db, "db", "chunks.db", "bolt database")
	pfs.StringVar(&snapshotOpts.host, "host", "chunks", "host name in the database")

	snapshotOpts.modules.flags(snapshotSaveCmd)

	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotRmCmd)
}
