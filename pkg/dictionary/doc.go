/*
Package dictionary turns a raw word→definition dictionary into the training
corpus used by the generators: it cleans definitions, drops entries that are
too short to learn from, samples a small "lite" corpus for fast start-up, and
persists entries either as JSON files or in a SQLite database.
*/
package dictionary
