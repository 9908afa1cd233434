package repository

import (
	"context"
	"errors"
	"fmt"
)

const (
	branchSwitchAnnouncementTemplateConstant  = "Current branch %s; switching to %s"
	branchRestoreAnnouncementTemplateConstant = "Returning to original branch %s"
)

// BranchSwitcher is the part of a Repository the branch guard needs.
type BranchSwitcher interface {
	CurrentBranch(executionContext context.Context) (string, error)
	Checkout(executionContext context.Context, sink MessageSink, branchName string) error
}

// WithBranch runs operation with branchName checked out and then returns the
// working copy to the branch it started on. Restoration happens on every exit
// path, panics included. A restore failure is joined to the operation error.
func WithBranch(executionContext context.Context, sink MessageSink, switcher BranchSwitcher, branchName string, operation func(context.Context) error) (resultError error) {
	originalBranch, currentBranchError := switcher.CurrentBranch(executionContext)
	if currentBranchError != nil {
		return currentBranchError
	}

	if originalBranch == branchName {
		return operation(executionContext)
	}

	if sendError := sink.Send(fmt.Sprintf(branchSwitchAnnouncementTemplateConstant, originalBranch, branchName)); sendError != nil {
		return sendError
	}
	if checkoutError := switcher.Checkout(executionContext, sink, branchName); checkoutError != nil {
		return checkoutError
	}

	defer func() {
		restoreError := restoreBranch(executionContext, sink, switcher, originalBranch)
		if restoreError != nil {
			resultError = errors.Join(resultError, restoreError)
		}
	}()

	return operation(executionContext)
}

func restoreBranch(executionContext context.Context, sink MessageSink, switcher BranchSwitcher, originalBranch string) error {
	sendError := sink.Send(fmt.Sprintf(branchRestoreAnnouncementTemplateConstant, originalBranch))
	checkoutError := switcher.Checkout(executionContext, sink, originalBranch)
	return errors.Join(sendError, checkoutError)
}
