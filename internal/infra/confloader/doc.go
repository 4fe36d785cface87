// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML file
//  3. Environment variables
//  4. An explicit map, usually built from command-line flags
//
// Environment variables take the form PAIRHUB_<SECTION>__<KEY>, with a
// double underscore between nesting levels so that keys containing a single
// underscore survive: PAIRHUB_STORAGE__DATA_DIR sets storage.data_dir.
//
// Watcher reports changes to the configuration file so a running server can
// apply the settings that are safe to change live.
package confloader
