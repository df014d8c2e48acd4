// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/meta"
)

const bashCompletionScript = `# bash completion for splitctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_splitctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "list export search delete diff copy cache sync menu completion --debug --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--attrs -a --color -c --filter -f --local -l --output -o --sort -s --titles -t --tldr --examples"

    case "$cmd" in
        list)
            local kinds="workspaces environments groups segments splits definitions users"
            local opts="$common"
            ;;
        export)
            local kinds="groups segments splits split_definitions users workspaces environments all"
            local opts="--dir -d --csv --tldr --examples"
            ;;
        search)
            local kinds="workspace group environment user split segment"
            local opts="$common --workspace -w --environment -e --dir -d --save --csv"
            ;;
        delete)
            local kinds="group segment split environment"
            local opts="--workspace -w --yes -y --tldr --examples"
            ;;
        diff)
            local opts="--workspace -w --to-ws --from-env --to-env --tldr --examples"
            ;;
        copy)
            local kinds="split segment"
            local opts="--workspace -w --environment -e --to-ws --to-env --to-name --comment --replace --yes -y --tldr --examples"
            ;;
        cache)
            local kinds="status refresh invalidate path"
            local opts="$common --all"
            ;;
        sync)
            local kinds="segments"
            local opts="$common --bucket --prefix --workspace -w --environment -e --segments --comment --keep --profile --region --endpoint"
            ;;
        menu)
            local opts="--dir -d"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json yaml csv raw" -- "$cur") )
        return 0
    fi

    if [[ "$prev" == "--dir" || "$prev" == "-d" || "$prev" == "--keep" ]]; then
        COMPREPLY=( $(compgen -o dirnames -- "$cur") )
        return 0
    fi

    # The first positional is the kind.
    if [[ ${COMP_CWORD} -eq 2 && "$cur" != -* && -n "$kinds" ]]; then
        COMPREPLY=( $(compgen -W "$kinds" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _splitctl splitctl
`

const zshCompletionScript = `#compdef splitctl

_splitctl() {
  local -a cmds
  cmds=(
    'list:list workspaces, environments, groups, segments, splits or users'
    'export:export datasets to JSON files'
    'search:find an object by name'
    'delete:delete a group, segment, split or environment'
    'diff:compare a feature flag in two environments'
    'copy:copy a flag definition or segment keys to another environment'
    'cache:inspect and manage the lookup cache'
    'sync:synchronize Split data from external sources'
    'menu:interactive menu'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-l --local)'{-l,--local}'[local timestamps]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml csv raw)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  '--examples[show usage examples]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'splitctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    list)
      _arguments -C \
        $common \
        '1:kind:(workspaces environments groups segments splits definitions users)'
      ;;
    export)
      _arguments -C \
        '(-d --dir)'{-d,--dir}'[output directory]:directory:_directories' \
        '--csv[also write CSV]' \
        '*:kind:(groups segments splits split_definitions users workspaces environments all)'
      ;;
    search)
      _arguments -C \
        $common \
        '(-w --workspace)'{-w,--workspace}'[workspace]:workspace' \
        '(-e --environment)'{-e,--environment}'[environment]:environment' \
        '(-d --dir)'{-d,--dir}'[output directory]:directory:_directories' \
        '--save[write what was found]' \
        '--csv[write CSV]' \
        '1:kind:(workspace group environment user split segment)' \
        '2:name'
      ;;
    delete)
      _arguments -C \
        '(-w --workspace)'{-w,--workspace}'[workspace]:workspace' \
        '(-y --yes)'{-y,--yes}'[do not ask]' \
        '1:kind:(group segment split environment)' \
        '2:name'
      ;;
    diff)
      _arguments -C \
        '(-w --workspace)'{-w,--workspace}'[workspace]:workspace' \
        '--to-ws[right hand workspace]:workspace' \
        '--from-env[left hand environment]:environment' \
        '--to-env[right hand environment]:environment' \
        '1:split'
      ;;
    copy)
      _arguments -C \
        '(-w --workspace)'{-w,--workspace}'[source workspace]:workspace' \
        '(-e --environment)'{-e,--environment}'[source environment]:environment' \
        '--to-ws[target workspace]:workspace' \
        '--to-env[target environment]:environment' \
        '--to-name[target name]:name' \
        '--comment[change comment]:comment' \
        '--replace[replace target keys]' \
        '(-y --yes)'{-y,--yes}'[do not ask]' \
        '1:kind:(split segment)' \
        '2:name'
      ;;
    cache)
      _arguments -C \
        $common \
        '--all[every slot]' \
        '1:action:(status refresh invalidate path)' \
        '*:slot:(workspaces environments segments segment_definitions splits splits_definitions users groups)'
      ;;
    sync)
      _arguments -C \
        $common \
        '--bucket[S3 bucket]:bucket' \
        '--prefix[key prefix]:prefix' \
        '(-w --workspace)'{-w,--workspace}'[workspace]:workspace' \
        '(-e --environment)'{-e,--environment}'[environment]:environment' \
        '--segments[segments]:segments' \
        '--comment[comment]:comment' \
        '--keep[keep downloads]:directory:_directories' \
        '--profile[AWS profile]:profile' \
        '--region[AWS region]:region' \
        '--endpoint[S3 endpoint]:url' \
        '1:what:(segments)'
      ;;
    menu)
      _arguments -C \
        '(-d --dir)'{-d,--dir}'[output directory]:directory:_directories'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _splitctl splitctl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	w := Writer(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: splitctl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "splitctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
