// Package storage manages the download folder.
//
// Files are streamed into a hidden temporary file in the folder and renamed
// to their final name on Commit, so an interrupted transfer never leaves a
// partial file behind:
//
//	manager, err := storage.NewManager("downloads", true)
//	if err != nil {
//	    return err
//	}
//	pending, err := manager.Create("paper.pdf")
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(pending, body); err != nil {
//	    pending.Abort()
//	    return err
//	}
//	path, err := pending.Commit()
//
// With overwrite disabled, Commit picks "paper (1).pdf", "paper (2).pdf" and
// so on instead of replacing an existing file.
package storage
