package cil

import "strings"

// Words ilasm reserves: directive keywords and the dot-free part of every
// opcode mnemonic. Names colliding with any of them must be quoted.
const reservedWords = `
abstract add and ansi any arglist array as assembly assert at auto autochar
beforefieldinit beq bge bgt ble blob blob_object blt bne bool box br break
brfalse brinst brnull brtrue brzero bstr bytearray byvalstr
call callconv calli callmostderived callvirt carray castclass catch cdecl ceq
cf cgt char cil ckfinite class clsid clt compilercontrolled const constrained
conv cpblk cpobj currency custom
date decimal default demand deny disablejitoptimizer div dup
enablejittracking endfault endfilter endfinally enum error explicit extends
extern
false famandassem family famorassem fastcall fault field filetime filter final
finally fixed flags float float32 float64 forwarder forwardref fromunmanaged
handler hidebysig hresult
idispatch il illegal implements implicitcom implicitres import in
inheritcheck init initblk initobj initonly instance int int16 int32 int64 int8
interface internalcall isinst iunknown
jmp
lasterr lcid ldarg ldarga ldc ldelem ldelema ldfld ldflda ldftn ldind ldlen
ldloc ldloca ldnull ldobj ldsfld ldsflda ldstr ldtoken ldvirtftn leave legacy
library linkcheck literal localloc lpstr lpstruct lptstr lpvoid lpwstr
managed marshal mdtoken method mkrefany modopt modreq mul
native neg nested newarr newobj newslot no noappdomain noinlining nomachine
nomangle nometadata noncasdemand noncasinheritance noncaslinkdemand nop
noprocess not not_in_gc_heap notremotable notserialized null nullref
object objectref opt optil or out
permitonly pinned pinvokeimpl pop prejitdeny prejitgrant preservesig private
privatescope protected public
readonly record refany refanytype refanyval rem reqmin reqopt reqrefuse
reqsecobj request ret rethrow retval rtspecialname runtime
safearray sealed sequential serializable shl shr sizeof specialname starg
static stdcall stelem stfld stind stloc stobj storage stored_object stream
streamed_object strict string struct stsfld sub switch synchronized syschar
sysstring
tail tbstr thiscall throw tls to true type typedref
uint uint16 uint32 uint64 uint8 unaligned unbox unicode unmanaged
unmanagedexp unsigned unused userdefined
value valuetype vararg variant vector virtual void volatile
wchar winapi with wrapper
xor
`

var keywords = func() map[string]bool {
	words := strings.Fields(reservedWords)
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
